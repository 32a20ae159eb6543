package reducer

import (
	"go.uber.org/zap"

	"launchpadIndexer/internal/model"
)

// Token transfers and approvals never touch entities. They are validated so a
// malformed stream still fails loudly.

func (e *Engine) observeTransfer(ev model.Transfer) (Outcome, error) {
	if err := requireAddress("token", ev.Contract); err != nil {
		return "", err
	}
	if err := requireAddress("from", ev.From); err != nil {
		return "", err
	}
	if err := requireAddress("to", ev.To); err != nil {
		return "", err
	}
	if err := requireAmount("value", ev.Value); err != nil {
		return "", err
	}
	e.logger.Debug("transfer",
		zap.String("token", normalizeID(ev.Contract)),
		zap.String("from", ev.From),
		zap.String("to", ev.To),
		zap.String("value", ev.Value.String()),
	)
	return Observed, nil
}

func (e *Engine) observeApproval(ev model.Approval) (Outcome, error) {
	if err := requireAddress("token", ev.Contract); err != nil {
		return "", err
	}
	if err := requireAddress("owner", ev.Owner); err != nil {
		return "", err
	}
	if err := requireAddress("spender", ev.Spender); err != nil {
		return "", err
	}
	if err := requireAmount("value", ev.Value); err != nil {
		return "", err
	}
	e.logger.Debug("approval",
		zap.String("token", normalizeID(ev.Contract)),
		zap.String("owner", ev.Owner),
		zap.String("spender", ev.Spender),
	)
	return Observed, nil
}
