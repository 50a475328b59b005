package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/0x3a/crits/core"
)

// csvRow flattens an indicator into the CSVHeader layout. Only the first
// campaign and the latest action fit a single row.
func csvRow(ind *core.Indicator) []string {
	var campaign, campaignConf, action string
	if len(ind.Campaigns) > 0 {
		campaign = ind.Campaigns[0].Name
		campaignConf = string(ind.Campaigns[0].Confidence)
	}
	if n := len(ind.Actions); n > 0 {
		action = ind.Actions[n-1].ActionType
	}
	tickets := make([]string, 0, len(ind.Tickets))
	for _, t := range ind.Tickets {
		tickets = append(tickets, t.TicketNumber)
	}
	return []string{
		ind.Value,
		string(ind.Type),
		campaign,
		campaignConf,
		string(ind.Confidence.Rating),
		string(ind.Impact.Rating),
		strings.Join(ind.BucketList, ","),
		strings.Join(tickets, ","),
		action,
	}
}

// ExportCSV writes every indicator matching the filters, ignoring paging,
// in the same column layout uploads accept
func (s *IndicatorService) ExportCSV(ctx context.Context, w io.Writer, filters *core.IndicatorFilters) error {
	if filters == nil {
		filters = &core.IndicatorFilters{}
	}
	query := *filters
	query.Offset = 0
	query.Limit = core.MaxPageSize

	writer := csv.NewWriter(w)
	if err := writer.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	written := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, _, err := s.store.ListIndicators(ctx, &query)
		if err != nil {
			return fmt.Errorf("failed to list indicators: %w", err)
		}
		for _, ind := range page {
			if err := writer.Write(csvRow(ind)); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
		written += len(page)
		if len(page) < query.Limit {
			break
		}
		query.Offset += query.Limit
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	s.logger.Infow("Indicators exported", "format", "csv", "count", written)
	return nil
}
