package telegram

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"cryptoindex/internal/chart"
	"cryptoindex/internal/finance"
	"cryptoindex/internal/indexer"
)

var (
	// /index [weights] [window]
	reIndex = regexp.MustCompile(`(?s)^/index(?:@[\w_]+)?(?:\s+(.+))?$`)
	// /explain [weights] [window]
	reExplain = regexp.MustCompile(`(?s)^/explain(?:@[\w_]+)?(?:\s+(.+))?$`)
	reAssets  = regexp.MustCompile(`^/assets(?:@[\w_]+)?$`)
	reHelp    = regexp.MustCompile(`^/(help|start)(?:@[\w_]+)?$`)
)

const (
	msgNotAllowed = "This chat is not allowed to use the bot."
	msgInternal   = "Internal error while computing the index. Please try again later."
)

// Sender is the part of tgbotapi.BotAPI the handlers use.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Runner computes an index so that a newer request for the same key
// replaces an older one.
type Runner interface {
	Compute(ctx context.Context, key string, req indexer.Request) (*indexer.Result, error)
}

// ChartRenderer draws a computed index.
type ChartRenderer interface {
	RenderResult(res *indexer.Result) ([]byte, error)
}

// Describer writes commentary for an index summary.
type Describer interface {
	Describe(ctx context.Context, summary string) (string, error)
}

// Deps are the collaborators of the handlers. Commentator and Commands are
// optional.
type Deps struct {
	Runner       Runner
	Renderer     ChartRenderer
	Commentator  Describer
	Universe     *finance.Universe
	Defaults     indexer.Defaults
	AllowedChats []int64
	Timeout      time.Duration
	// Commands counts handled commands, labeled by "command".
	Commands metrics.Counter
}

// Handlers implements the bot commands.
type Handlers struct {
	api     Sender
	deps    Deps
	allowed map[int64]bool
	logger  log.Logger
}

// NewHandlers creates the command handlers.
func NewHandlers(api Sender, deps Deps, logger log.Logger) *Handlers {
	if deps.Timeout <= 0 {
		deps.Timeout = 60 * time.Second
	}
	if deps.Commands == nil {
		deps.Commands = discard.NewCounter()
	}
	allowed := make(map[int64]bool, len(deps.AllowedChats))
	for _, id := range deps.AllowedChats {
		allowed[id] = true
	}
	return &Handlers{api: api, deps: deps, allowed: allowed, logger: logger}
}

// HandleMessage answers one message. Non-command text is ignored.
func (h *Handlers) HandleMessage(m *tgbotapi.Message) {
	txt := strings.TrimSpace(m.Text)
	if !strings.HasPrefix(txt, "/") {
		return
	}
	s := newSession(m, h.allowed)

	var command string
	switch {
	case reIndex.MatchString(txt):
		command = "index"
	case reExplain.MatchString(txt):
		command = "explain"
	case reAssets.MatchString(txt):
		command = "assets"
	case reHelp.MatchString(txt):
		command = "help"
	default:
		return
	}
	h.deps.Commands.With("command", command).Add(1)

	if !s.Allowed {
		_ = level.Info(h.logger).Log("msg", "refused chat", "chat_id", s.ChatID, "user_id", s.UserID, "command", command)
		h.reply(s.ChatID, msgNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.deps.Timeout)
	defer cancel()

	switch command {
	case "index":
		h.handleIndex(ctx, s, reIndex.FindStringSubmatch(txt)[1])
	case "explain":
		h.handleExplain(ctx, s, reExplain.FindStringSubmatch(txt)[1])
	case "assets":
		h.handleAssets(s)
	case "help":
		h.handleHelp(s)
	}
}

// Report computes the default index and posts it to chatID.
func (h *Handlers) Report(ctx context.Context, chatID int64) error {
	res, err := h.deps.Runner.Compute(ctx, "report:"+strconv.FormatInt(chatID, 10), h.deps.Defaults.Request())
	if err != nil {
		return fmt.Errorf("compute report: %w", err)
	}
	return h.sendChart(chatID, res)
}

func (h *Handlers) handleIndex(ctx context.Context, s Session, args string) {
	res, ok := h.compute(ctx, s, args)
	if !ok {
		return
	}
	if err := h.sendChart(s.ChatID, res); err != nil {
		_ = level.Error(h.logger).Log("msg", "send chart", "chat_id", s.ChatID, "err", err)
		h.reply(s.ChatID, "Chart failed: "+err.Error())
	}
}

func (h *Handlers) handleExplain(ctx context.Context, s Session, args string) {
	res, ok := h.compute(ctx, s, args)
	if !ok {
		return
	}
	summary := chart.Caption(res)
	if h.deps.Commentator == nil {
		h.reply(s.ChatID, summary+"\n\nCommentary is not configured.")
		return
	}
	text, err := h.deps.Commentator.Describe(ctx, summary)
	if err != nil {
		_ = level.Warn(h.logger).Log("msg", "commentary failed", "chat_id", s.ChatID, "err", err)
		h.reply(s.ChatID, summary+"\n\nCommentary is unavailable right now.")
		return
	}
	h.reply(s.ChatID, summary+"\n\n"+text)
}

// compute parses args over the defaults and runs the index for the chat. It
// replies with the failure itself and reports whether a result is available.
func (h *Handlers) compute(ctx context.Context, s Session, args string) (*indexer.Result, bool) {
	req := h.deps.Defaults.Request()
	if args = strings.TrimSpace(args); args != "" {
		raw, days, err := finance.ParseIndexArgs([]string{args})
		if err != nil {
			h.reply(s.ChatID, "Invalid command: "+err.Error()+"\nExample: /index Bitcoin 65 Ethereum 35 30d")
			return nil, false
		}
		req.Weights = raw
		if days > 0 {
			req.Days = days
		}
	}

	res, err := h.deps.Runner.Compute(ctx, strconv.FormatInt(s.ChatID, 10), req)
	if errors.Is(err, indexer.ErrSuperseded) {
		return nil, false
	}
	if err != nil {
		h.reply(s.ChatID, userMessage(err))
		return nil, false
	}
	return res, true
}

func (h *Handlers) sendChart(chatID int64, res *indexer.Result) error {
	img, err := h.deps.Renderer.RenderResult(res)
	if err != nil {
		return err
	}
	name := strings.ReplaceAll(strings.ToLower(strings.Join(res.Weights.Assets(), "_")), " ", "-")
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name + "_index.png", Bytes: img})
	photo.Caption = chart.Caption(res)
	_, err = h.api.Send(photo)
	return err
}

func (h *Handlers) handleAssets(s Session) {
	var b strings.Builder
	b.WriteString("Supported assets\n")
	for _, a := range h.deps.Universe.Assets() {
		b.WriteString("\n- " + a.ID)
		if len(a.Aliases) > 0 {
			b.WriteString(" (" + strings.Join(a.Aliases, ", ") + ")")
		}
	}
	h.reply(s.ChatID, b.String())
}

func (h *Handlers) handleHelp(s Session) {
	d := h.deps.Defaults
	weights := "none"
	if w, err := finance.ValidateWeights(h.deps.Universe.Canonicalize(d.Weights), h.deps.Universe.Known()); err == nil {
		weights = w.String()
	}
	help := "Commands\n\n" +
		"- /index [ASSET WEIGHT ...] [window] - Chart a weighted crypto index against a fixed-return baseline\n" +
		"- /explain [ASSET WEIGHT ...] [window] - Same index, described in words\n" +
		"- /assets - List supported assets and their aliases\n" +
		"- /help - Show this message\n" +
		"\nWeights may be written as 'Bitcoin 65 Ethereum 35' or 'BTC=65,ETH=35' and are rescaled to sum to 100%. " +
		"Windows: 30d, 4w, 3m, 1y.\n" +
		fmt.Sprintf("Defaults: %s, %d days, %.1f%%/yr baseline.", weights, d.Days, d.AnnualRate*100)
	h.reply(s.ChatID, help)
}

func (h *Handlers) reply(chatID int64, text string) {
	if _, err := h.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		_ = level.Error(h.logger).Log("msg", "send reply", "chat_id", chatID, "err", err)
	}
}

// userMessage turns a computation error into a reply. Internal defects get a
// generic message; everything else names what went wrong.
func userMessage(err error) string {
	var we *finance.WeightError
	var fetch *indexer.FetchFailures
	switch {
	case errors.As(err, &we) && we.Reason == finance.UnknownAsset:
		return "Couldn't build the index: " + err.Error() + ". Use /assets to see supported assets."
	case errors.Is(err, finance.ErrInvalidWeights), errors.Is(err, indexer.ErrInvalidRequest):
		return "Couldn't build the index: " + err.Error()
	case errors.As(err, &fetch):
		return "Couldn't build the index: " + err.Error() + ". Try again later or drop those assets."
	case errors.Is(err, context.DeadlineExceeded):
		return "Timed out fetching prices. Please try again."
	case errors.Is(err, finance.ErrMissingPricePoint):
		return msgInternal
	case errors.Is(err, finance.ErrInsufficientData):
		return "Not enough price data: " + err.Error()
	default:
		return msgInternal
	}
}
