package order

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidQueueNumber = errors.New("queue number must be positive")

// Numbers pairs the operational queue number with the customer-facing invoice reference.
type Numbers struct {
	QueueNumber   int64
	InvoiceNumber string
}

// NewNumbers formats INV/<yyyymmdd>/<queue padded to six digits> for the day of at in loc.
func NewNumbers(queue int64, at time.Time, loc *time.Location) (Numbers, error) {
	if queue <= 0 {
		return Numbers{}, ErrInvalidQueueNumber
	}
	if loc == nil {
		loc = time.UTC
	}
	return Numbers{
		QueueNumber:   queue,
		InvoiceNumber: fmt.Sprintf("INV/%s/%06d", at.In(loc).Format("20060102"), queue),
	}, nil
}
