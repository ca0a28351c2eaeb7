package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/tutorgoat/tutorgoat-backend/pkg/db/models"
)

const dlqListLimit = 50

type dlqAdmin interface {
	List(ctx context.Context, limit int) ([]models.OutboxDLQ, error)
	Requeue(ctx context.Context, eventID uuid.UUID) error
}

// runDLQCommand serves the one-shot -dlq-list and -dlq-requeue flags.
func runDLQCommand(ctx context.Context, repo dlqAdmin, list bool, requeue string, out io.Writer) error {
	if requeue != "" {
		id, err := uuid.Parse(requeue)
		if err != nil {
			return fmt.Errorf("invalid event id %q: %w", requeue, err)
		}
		if err := repo.Requeue(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(out, "requeued %s\n", id)
	}
	if !list {
		return nil
	}

	rows, err := repo.List(ctx, dlqListLimit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EVENT_ID\tEVENT_TYPE\tREASON\tATTEMPTS\tFAILED_AT\tERROR")
	for _, row := range rows {
		msg := ""
		if row.ErrorMessage != nil {
			msg = *row.ErrorMessage
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			row.EventID, row.EventType, row.ErrorReason, row.AttemptCount, row.FailedAt.Format(time.RFC3339), msg)
	}
	return w.Flush()
}
