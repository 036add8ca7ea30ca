package checkout

import "errors"

var ErrIllegalTransition = errors.New("illegal checkout stage transition")

type Stage string

const (
	StageValidating     Stage = "VALIDATING"
	StageAddressChecked Stage = "ADDRESS_CHECKED"
	StageRatesMatched   Stage = "RATES_MATCHED"
	StageStockReserved  Stage = "STOCK_RESERVED"
	StageOrderPersisted Stage = "ORDER_PERSISTED"
	StageTotalsComputed Stage = "TOTALS_COMPUTED"
	StageTokenIssued    Stage = "TOKEN_ISSUED"
	StageFailed         Stage = "FAILED"
)

var transitions = map[Stage]Stage{
	StageValidating:     StageAddressChecked,
	StageAddressChecked: StageRatesMatched,
	StageRatesMatched:   StageStockReserved,
	StageStockReserved:  StageOrderPersisted,
	StageOrderPersisted: StageTotalsComputed,
	StageTotalsComputed: StageTokenIssued,
}

func (s Stage) String() string {
	return string(s)
}

func (s Stage) IsTerminal() bool {
	return s == StageTokenIssued || s == StageFailed
}

// CanTransitionTo allows the next stage in line, or Failed from any non-terminal stage.
func (s Stage) CanTransitionTo(next Stage) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StageFailed {
		return true
	}
	return transitions[s] == next
}

// Progress tracks one checkout run through its stages.
type Progress struct {
	current  Stage
	failedAt Stage
	err      error
}

func NewProgress() *Progress {
	return &Progress{current: StageValidating}
}

func (p *Progress) Current() Stage { return p.current }

// FailedAt is the stage that was running when the checkout failed.
func (p *Progress) FailedAt() Stage { return p.failedAt }

func (p *Progress) Err() error { return p.err }

// Fork copies the progress so a retried transaction can replay its stages.
func (p *Progress) Fork() *Progress {
	c := *p
	return &c
}

func (p *Progress) Advance(next Stage) error {
	if !p.current.CanTransitionTo(next) || next == StageFailed {
		return ErrIllegalTransition
	}
	p.current = next
	return nil
}

func (p *Progress) Fail(err error) {
	if p.current.IsTerminal() {
		return
	}
	p.failedAt = p.current
	p.current = StageFailed
	p.err = err
}
