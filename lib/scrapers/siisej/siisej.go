// Package siisej scrapes the expediente search of the SIISEJ court
// site: the district/court catalogs from its JSON endpoint and the
// docket table for a single expediente from its HTML search page.
package siisej

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"tribunal-tracker/lib/htmlutil"
	"tribunal-tracker/lib/records"
	"tribunal-tracker/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("tribunal-tracker.lib.scrapers.siisej")

const (
	DefaultSearchUrl = "http://siisej-dttos.tsjtlaxcala.gob.mx/busqueda/busqueda-expedientes/consulta"
	DefaultCourtsUrl = "http://siisej-dttos.tsjtlaxcala.gob.mx/busqueda/busqueda-expedientes/juzgados-activos"
)

// the phrase the site puts in its error box when an expediente does
// not exist
const notFoundPhrase = "no esta ingresado en la base de datos"

// ErrExpedienteNotFound is returned when the site explicitly reports
// that the expediente is not in its database, as opposed to a fetch
// or parse failure.
var ErrExpedienteNotFound = errors.New("expediente is not in the court database")

// errNoTable marks a page that had neither a docket table nor a
// recognizable error message. The probe treats it as an ambiguous
// verdict instead of a failure.
var errNoTable = errors.New("no docket table in response")

type Client struct {
	http      *resty.Client
	searchUrl string
	courtsUrl string
}

type Option func(*Client)

func WithSearchUrl(url string) Option {
	return func(c *Client) { c.searchUrl = url }
}

func WithCourtsUrl(url string) Option {
	return func(c *Client) { c.courtsUrl = url }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

func NewClient(opts ...Option) *Client {
	client := resty.New()
	client.SetTimeout(time.Second * 15)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	telemetry.InstrumentResty(client, "tribunal-tracker.lib.scrapers.siisej")

	c := &Client{
		http:      client,
		searchUrl: DefaultSearchUrl,
		courtsUrl: DefaultCourtsUrl,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type District struct {
	Id   string
	Name string
}

type Court struct {
	Id   string
	Name string
}

type courtJson struct {
	Id     string `json:"id"`
	Name   string `json:"nombre_juzgado"`
	Active string `json:"activo"`
}

// the juzgados-activos endpoint replies with
// {districtId: {districtName: [courts...]}}
type catalogJson map[string]map[string][]courtJson

func (c *Client) fetchCatalog(ctx context.Context) (catalogJson, error) {
	res, err := c.http.R().SetContext(ctx).Get(c.courtsUrl)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("court catalog request: %s", res.Status())
	}

	var catalog catalogJson
	err = json.Unmarshal(res.Body(), &catalog)
	if err != nil {
		return nil, fmt.Errorf("decode court catalog: %w", err)
	}
	return catalog, nil
}

// Districts lists the districts the site knows about, sorted by id.
func (c *Client) Districts(ctx context.Context) ([]District, error) {
	ctx, span := tracer.Start(ctx, "Districts")
	defer span.End()

	catalog, err := c.fetchCatalog(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var districts []District
	for id, byName := range catalog {
		for name := range byName {
			districts = append(districts, District{
				Id:   id,
				Name: strings.TrimSpace(name),
			})
		}
	}
	sort.Slice(districts, func(i, j int) bool {
		return districts[i].Id < districts[j].Id
	})
	return districts, nil
}

// Courts lists the active courts of one district.
func (c *Client) Courts(ctx context.Context, districtId string) ([]Court, error) {
	ctx, span := tracer.Start(ctx, "Courts")
	defer span.End()
	span.SetAttributes(attribute.String("district", districtId))

	catalog, err := c.fetchCatalog(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	byName, ok := catalog[districtId]
	if !ok {
		return nil, fmt.Errorf("unknown district %q", districtId)
	}

	var courts []Court
	for _, list := range byName {
		for _, court := range list {
			if court.Active != "1" {
				continue
			}
			name := court.Name
			if name == "" {
				name = "Sin nombre"
			}
			courts = append(courts, Court{Id: court.Id, Name: name})
		}
	}
	sort.Slice(courts, func(i, j int) bool {
		return courts[i].Id < courts[j].Id
	})
	return courts, nil
}

// FetchExpediente fetches the docket table for one expediente.
//
// Returns ErrExpedienteNotFound when the site explicitly says the
// expediente is not in its database, an empty RecordSet when the
// expediente exists but has no rows yet, and a plain error on
// connection failures or unrecognizable pages.
func (c *Client) FetchExpediente(ctx context.Context, distrito, juzgado, numero, ano string) (records.RecordSet, error) {
	ctx, span := tracer.Start(ctx, "FetchExpediente")
	defer span.End()
	span.SetAttributes(
		attribute.String("distrito", distrito),
		attribute.String("juzgado", juzgado),
		attribute.String("numero", numero),
		attribute.String("ano", ano),
	)

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"distrito":         distrito,
			"juzgado":          juzgado,
			"numeroExpediente": numero,
			"ano":              ano,
		}).
		Get(c.searchUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if res.IsError() {
		err := fmt.Errorf("expediente request: %s", res.Status())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	rs, err := parseExpedientePage(res.Body())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("rows", len(rs)))
	return rs, nil
}

func parseExpedientePage(body []byte) (records.RecordSet, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse expediente page: %w", err)
	}

	// the site reports a missing expediente through an alert div that
	// is unhidden by dropping the d-none class
	errorBox := doc.Find("div#error_box").First()
	if errorBox.Length() > 0 {
		text := strings.ToLower(htmlutil.CleanText(errorBox.Text()))
		if strings.Contains(text, notFoundPhrase) && !errorBox.HasClass("d-none") {
			return nil, ErrExpedienteNotFound
		}
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		// no table and no visible error box: scan the usual message
		// containers before declaring the page unrecognizable
		if pageSaysNotFound(doc) {
			return nil, ErrExpedienteNotFound
		}
		return nil, errNoTable
	}

	return parseDocketTable(table), nil
}

var notFoundKeywords = []string{
	notFoundPhrase,
	"no se encontr",
	"sin resultados",
	"no existe",
	"expediente no válido",
}

func pageSaysNotFound(doc *goquery.Document) bool {
	found := false
	doc.Find("div.alert, p.error, span.warning, div.mensaje, p.mensaje").Each(func(_ int, sel *goquery.Selection) {
		text := strings.ToLower(htmlutil.CleanText(sel.Text()))
		if text == "" {
			return
		}
		for _, keyword := range notFoundKeywords {
			if strings.Contains(text, keyword) {
				found = true
				return
			}
		}
	})
	return found
}

func parseDocketTable(table *goquery.Selection) records.RecordSet {
	rows := table.Find("tr")
	if rows.Length() == 0 {
		return records.RecordSet{}
	}

	// a first row with <th> cells is a header row, a plain <td> row
	// is already data (some juzgados render headerless tables)
	var headers []string
	if rows.First().Find("th").Length() > 0 {
		rows.First().Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, strings.ToLower(htmlutil.CleanText(cell.Text())))
		})
	}

	rs := records.RecordSet{}
	rows.Each(func(i int, row *goquery.Selection) {
		if i == 0 && len(headers) > 0 {
			return
		}

		var values []string
		row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			values = append(values, htmlutil.CleanText(cell.Text()))
		})
		if len(values) == 0 {
			return
		}

		var record records.Record
		if len(headers) > 0 && len(values) >= len(headers) {
			for j, header := range headers {
				record = append(record, records.Field{Name: header, Value: values[j]})
			}
		} else {
			// headerless table, keep the source's positional naming
			for j, value := range values {
				if value == "" {
					continue
				}
				record = append(record, records.Field{Name: records.PositionalName(j), Value: value})
			}
		}
		if len(record) > 0 {
			rs = append(rs, record)
		}
	})
	return rs
}
