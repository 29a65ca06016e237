package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/camuig/quant-relay/internal/config"
	"github.com/camuig/quant-relay/internal/logger"
	"github.com/camuig/quant-relay/internal/report"
)

// Message is one inbound chat message.
type Message struct {
	Username string
	ChatID   int64
	Text     string
}

// Reply is the answer to a Message, addressed to the same chat.
type Reply struct {
	ChatID   int64
	Text     string
	Markdown bool
}

const (
	CmdStart        = "/start"
	CmdReloadConfig = "/reloadconfig"
	CmdReloadUsers  = "/reloadusers"
	CmdGetOanda     = "/get_oanda"
	CmdGetQC        = "/get_qc"
)

const (
	TextReloaded      = "Configuration has been reloaded."
	TextReloadFailed  = "Configuration reload failed, the previous configuration is still active."
	TextOandaDisabled = "Oanda integration is not configured."
	TextUnknown       = "No suitable command provided."
	positionsHeading  = "\n_Current positions_\n"
)

// Command is an entry of the menu shown by chat clients.
type Command struct {
	Name        string
	Description string
}

// Commands is registered with the chat platform at startup. The legacy
// /reloadusers alias is accepted but not advertised.
var Commands = []Command{
	{Name: CmdStart, Description: "Show the connected accounts"},
	{Name: CmdGetOanda, Description: "Oanda account summary and open positions"},
	{Name: CmdGetQC, Description: "QuantConnect live algorithm equity"},
	{Name: CmdReloadConfig, Description: "Reload the whole bot configuration"},
}

type Reporter interface {
	Fetch(ctx context.Context, cfg *config.Config, kind report.Kind) report.Result
}

type Dispatcher struct {
	store    *config.Store
	reporter Reporter
	logger   *logger.Logger
}

func NewDispatcher(store *config.Store, reporter Reporter, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		store:    store,
		reporter: reporter,
		logger:   log,
	}
}

// Handle maps a message to its reply. It returns false when the message must
// be dropped without an answer: unknown sender or empty text. One snapshot is
// used for the whole reply, even if a reload lands while it is being built.
func (d *Dispatcher) Handle(ctx context.Context, m Message) (Reply, bool) {
	cfg := d.store.Current()

	if m.Text == "" || !cfg.IsAuthorized(m.Username) {
		return Reply{}, false
	}

	fields := strings.Fields(m.Text)
	if len(fields) == 0 {
		return Reply{}, false
	}

	reply := Reply{ChatID: m.ChatID}
	switch strings.ToLower(fields[0]) {
	case CmdStart:
		reply.Text = welcome(cfg)
		reply.Markdown = true

	case CmdReloadConfig, CmdReloadUsers:
		reply.Text = d.reload()

	case CmdGetOanda:
		if !cfg.BrokerageEnabled() {
			reply.Text = TextOandaDisabled
			break
		}
		summary := d.reporter.Fetch(ctx, cfg, report.BrokerageSummary)
		positions := d.reporter.Fetch(ctx, cfg, report.BrokeragePositions)
		reply.Text = section(summary) + positionsHeading + section(positions)
		reply.Markdown = true

	case CmdGetQC:
		reply.Text = section(d.reporter.Fetch(ctx, cfg, report.PlatformEquity))
		reply.Markdown = true

	default:
		reply.Text = TextUnknown
	}

	return reply, true
}

func (d *Dispatcher) reload() string {
	d.logger.Info("loading configuration", "path", d.store.Path())
	if _, err := d.store.Reload(); err != nil {
		d.logger.Error("could not reload configuration, keeping previous configuration", "error", err)
		return TextReloadFailed
	}
	d.logger.Info("configuration reloaded successfully")
	return TextReloaded
}

func welcome(cfg *config.Config) string {
	text := fmt.Sprintf("Welcome! Bot is connected to QuantConnect account `%d`", cfg.QuantConnectJobUserID)
	if cfg.BrokerageEnabled() {
		return text + fmt.Sprintf(" and Oanda %s account `%s`.", cfg.OandaMode, cfg.OandaAccountID)
	}
	return text + "."
}

// section renders a report, or a short notice when it could not be fetched.
func section(r report.Result) string {
	if !r.OK() {
		return fmt.Sprintf("_Could not fetch %s data._\n", r.Kind)
	}
	return r.Text
}
