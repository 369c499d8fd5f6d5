package tracker

import (
	"context"
	"errors"
	"tribunal-tracker/lib/records"
	"tribunal-tracker/lib/scrapers/siisej"
)

// Fetcher is the court-site capability handed to the service. Keeping
// it an interface breaks the storage<->scraper dependency knot and
// lets tests substitute scripted fetchers.
type Fetcher interface {
	// FetchCaseRecords returns the docket rows for an expediente,
	// oldest first. ErrCaseNotFound when the site explicitly reports
	// the expediente does not exist; any other error is transient and
	// retried on the next scheduled batch, never inline.
	FetchCaseRecords(ctx context.Context, loc CaseLocator) (records.RecordSet, error)

	// ProbeCase verifies an expediente before registration. nil means
	// it exists; ErrCaseNotFound and ErrCaseIndeterminate are the
	// explicit verdicts; anything else is a connection failure.
	ProbeCase(ctx context.Context, loc CaseLocator) error
}

// SiteFetcher adapts the siisej scraper to the Fetcher contract.
type SiteFetcher struct {
	client *siisej.Client
}

var _ Fetcher = SiteFetcher{}

func NewSiteFetcher(client *siisej.Client) SiteFetcher {
	return SiteFetcher{client: client}
}

func (f SiteFetcher) FetchCaseRecords(ctx context.Context, loc CaseLocator) (records.RecordSet, error) {
	rs, err := f.client.FetchExpediente(ctx, loc.District, loc.Court, loc.Number, loc.Year)
	if errors.Is(err, siisej.ErrExpedienteNotFound) {
		return nil, ErrCaseNotFound
	}
	return rs, err
}

func (f SiteFetcher) ProbeCase(ctx context.Context, loc CaseLocator) error {
	res, err := f.client.ProbeExpediente(ctx, loc.District, loc.Court, loc.Number, loc.Year)
	if err != nil {
		return err
	}
	switch res.Existence {
	case siisej.Exists:
		return nil
	case siisej.NotExists:
		return ErrCaseNotFound
	default:
		return ErrCaseIndeterminate
	}
}
