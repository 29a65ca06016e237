package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/camuig/quant-relay/internal/config"
	"github.com/camuig/quant-relay/internal/format"
	"github.com/camuig/quant-relay/internal/logger"
	"github.com/camuig/quant-relay/internal/oanda"
	"github.com/camuig/quant-relay/internal/quantconnect"
)

// Kind names one account data report.
type Kind string

const (
	BrokerageSummary   Kind = "oanda-summary"
	BrokeragePositions Kind = "oanda-positions"
	PlatformEquity     Kind = "qc-nav"
)

// Kinds lists every supported report in display order.
var Kinds = []Kind{BrokerageSummary, BrokeragePositions, PlatformEquity}

var ErrBrokerageDisabled = errors.New("oanda integration is not configured")

func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return Kind(s), false
}

// Result separates a rendered report from a failed fetch. Text is empty
// whenever Err is set.
type Result struct {
	Kind Kind
	Text string
	Err  error
}

func (r Result) OK() bool {
	return r.Err == nil
}

type Brokerage interface {
	AccountSummary(ctx context.Context, accountID string) (*oanda.AccountSummary, error)
	OpenPositions(ctx context.Context, accountID string) ([]oanda.Position, error)
}

type Platform interface {
	ReadLive(ctx context.Context, projectID int64, deployID string) (*quantconnect.LiveResult, error)
}

// Aggregator fetches account data fresh on every call and renders it as
// Telegram Markdown.
type Aggregator struct {
	brokerage Brokerage
	platform  Platform
	logger    *logger.Logger
}

// NewAggregator builds an aggregator. brokerage may be nil when no OANDA
// token is configured.
func NewAggregator(brokerage Brokerage, platform Platform, log *logger.Logger) *Aggregator {
	return &Aggregator{
		brokerage: brokerage,
		platform:  platform,
		logger:    log,
	}
}

// Fetch renders one report using the ids and timeout of cfg. Callers pass the
// same snapshot for every report of one reply.
func (a *Aggregator) Fetch(ctx context.Context, cfg *config.Config, kind Kind) Result {
	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout())
	defer cancel()

	var (
		text string
		err  error
	)
	switch kind {
	case BrokerageSummary:
		text, err = a.brokerageSummary(ctx, cfg)
	case BrokeragePositions:
		text, err = a.brokeragePositions(ctx, cfg)
	case PlatformEquity:
		text, err = a.platformEquity(ctx, cfg)
	default:
		return Result{Kind: kind, Text: HelpText(kind)}
	}

	if err != nil {
		a.logger.Error("could not get account data", "kind", string(kind), "error", err)
		return Result{Kind: kind, Err: err}
	}
	return Result{Kind: kind, Text: text}
}

// HelpText is returned for unknown report kinds.
func HelpText(kind Kind) string {
	names := make([]string, len(Kinds))
	for i, k := range Kinds {
		names[i] = "`" + string(k) + "`"
	}
	return fmt.Sprintf("`%s` is not a recognised account data type.\n\nAvailable data types: %s",
		strings.ReplaceAll(string(kind), "`", "'"), strings.Join(names, ", "))
}

func (a *Aggregator) brokerageSummary(ctx context.Context, cfg *config.Config) (string, error) {
	if a.brokerage == nil || !cfg.BrokerageEnabled() {
		return "", ErrBrokerageDisabled
	}

	s, err := a.brokerage.AccountSummary(ctx, cfg.OandaAccountID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("*Oanda account summary*\n")
	fmt.Fprintf(&b, "NAV: %s\n", format.Pound.Currency(s.NAV.InexactFloat64()))
	fmt.Fprintf(&b, "Unrealised P&L: %s\n", format.Pound.Currency(s.UnrealizedPL.InexactFloat64()))
	fmt.Fprintf(&b, "Realised P&L: %s\n", format.Pound.Currency(s.PL.InexactFloat64()))
	fmt.Fprintf(&b, "Margin call %%: %s\n", format.Pound.Percent(s.MarginCloseoutPercent.InexactFloat64()))
	return b.String(), nil
}

func (a *Aggregator) brokeragePositions(ctx context.Context, cfg *config.Config) (string, error) {
	if a.brokerage == nil || !cfg.BrokerageEnabled() {
		return "", ErrBrokerageDisabled
	}

	positions, err := a.brokerage.OpenPositions(ctx, cfg.OandaAccountID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, p := range positions {
		side := p.Side()
		if side == oanda.Flat {
			a.logger.Debug("skipping flat position", "instrument", p.Instrument)
			continue
		}
		units, pl := p.Open()
		fmt.Fprintf(&b, "%s\n", Bold(p.Instrument))
		fmt.Fprintf(&b, "Unrealised P&L: %s\n", format.Pound.Currency(pl.InexactFloat64()))
		fmt.Fprintf(&b, "Direction: %s\n", side)
		fmt.Fprintf(&b, "# Units: %s\n\n", format.Pound.Integer(units))
	}

	if b.Len() == 0 {
		return "No open positions.\n", nil
	}
	return b.String(), nil
}

func (a *Aggregator) platformEquity(ctx context.Context, cfg *config.Config) (string, error) {
	res, err := a.platform.ReadLive(ctx, cfg.QuantConnectProjectID, cfg.QuantConnectDeploymentID)
	if err != nil {
		return "", err
	}

	equity, err := res.LatestValue(quantconnect.StrategyEquityChart, quantconnect.EquitySeries)
	if err != nil {
		return "", err
	}
	return "*QuantConnect NAV*\n" + format.Dollar.Currency(equity), nil
}

// Bold wraps s in a legacy Markdown bold entity. Escapes are not honoured
// inside an entity, so a literal '*' closes the entity, is escaped outside it
// and the remainder is reopened.
func Bold(s string) string {
	parts := strings.Split(s, "*")
	for i, part := range parts {
		if part != "" {
			parts[i] = "*" + part + "*"
		}
	}
	return strings.Join(parts, "\\*")
}
