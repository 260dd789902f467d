package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/vibecode/internal/gateway"
	"github.com/user/vibecode/internal/target"
	"github.com/user/vibecode/internal/types"
)

const maxTelegramMessage = 4096

const helpText = `Send a message to route it to an agent or project.

@<target> <text>  send to a target
@"<target>" <text>  quote targets with spaces
<text>            send to the current target

Targets: all, current, project:2, project:Backend, agent:#3, "agent:api fixes"

/targets          list projects and agents
/focus <target>   make a target current
/help             show this message`

// Dispatcher is the part of the gateway the adapter drives.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd *gateway.Command, opts ...gateway.RunOption) (gateway.Receipt, error)
	Resolve(ctx context.Context, t *target.Target) (target.Result, error)
	Targets(ctx context.Context) ([]target.Entry, error)
}

// FocusSetter records what the user explicitly focused.
type FocusSetter interface {
	FocusProject(ctx context.Context, id types.ProjectID) error
	FocusSession(ctx context.Context, id types.SessionID) error
}

// Adapter bridges Telegram to the gateway.
type Adapter struct {
	bot     *tgbotapi.BotAPI
	gateway Dispatcher
	focus   FocusSetter
	allowed map[int64]bool
}

// New creates a Telegram adapter. An empty allow list admits every user.
func New(token string, gw Dispatcher, focus FocusSetter, allowedUsers []int64) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return newAdapter(bot, gw, focus, allowedUsers), nil
}

func newAdapter(bot *tgbotapi.BotAPI, gw Dispatcher, focus FocusSetter, allowedUsers []int64) *Adapter {
	a := &Adapter{bot: bot, gateway: gw, focus: focus}
	if len(allowedUsers) > 0 {
		a.allowed = make(map[int64]bool, len(allowedUsers))
		for _, id := range allowedUsers {
			a.allowed[id] = true
		}
	}
	return a
}

// Start begins long-polling for Telegram updates.
func (a *Adapter) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := a.bot.GetUpdatesChan(u)

	for {
		select {
		case update := <-updates:
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			chatID := update.Message.Chat.ID
			a.handleMessage(ctx, update.Message, func(text string) {
				a.sendResponse(chatID, text)
			})
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			return
		}
	}
}

func (a *Adapter) permitted(msg *tgbotapi.Message) bool {
	if a.allowed == nil {
		return true
	}
	return msg.From != nil && a.allowed[msg.From.ID]
}

func (a *Adapter) handleMessage(ctx context.Context, msg *tgbotapi.Message, reply func(string)) {
	if !a.permitted(msg) {
		slog.Warn("telegram message from unauthorized user", "chat_id", msg.Chat.ID)
		return
	}

	if msg.IsCommand() {
		a.handleCommand(ctx, msg, reply)
		return
	}

	t, text, err := parseMessage(msg.Text)
	if err != nil {
		reply(err.Error())
		return
	}

	cmd := &gateway.Command{Source: "telegram", Target: t, Text: text}
	if msg.From != nil {
		cmd.UserID = strconv.FormatInt(msg.From.ID, 10)
	}
	receipt, err := a.gateway.Dispatch(ctx, cmd, gateway.WithOnFailure(func(err error) {
		reply(fmt.Sprintf("Delivery failed: %v", err))
	}))
	if err != nil && len(receipt.Runs) == 0 {
		slog.Error("telegram dispatch failed", "error", err)
		reply("Sorry, I could not route that command.")
		return
	}
	if err != nil {
		slog.Warn("telegram dispatch partially queued", "skipped", receipt.Skipped, "error", err)
	}
	reply(receipt.Message())
}

func (a *Adapter) handleCommand(ctx context.Context, msg *tgbotapi.Message, reply func(string)) {
	switch msg.Command() {
	case "start", "help":
		reply(helpText)

	case "targets":
		entries, err := a.gateway.Targets(ctx)
		if err != nil {
			slog.Error("list targets failed", "error", err)
			reply("Error listing targets.")
			return
		}
		reply(formatTargets(entries))

	case "focus":
		reply(a.focusTarget(ctx, msg.CommandArguments()))

	default:
		reply("Unknown command. Available: /start, /targets, /focus, /help")
	}
}

func (a *Adapter) focusTarget(ctx context.Context, expr string) string {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "Usage: /focus <target>"
	}
	t, err := target.Parse(expr)
	if err != nil {
		return err.Error()
	}
	res, err := a.gateway.Resolve(ctx, t)
	if err != nil {
		slog.Error("resolve failed", "target", expr, "error", err)
		return "Error resolving target."
	}

	switch res.Kind {
	case target.ResultProject:
		err = a.focus.FocusProject(ctx, res.Project.ID)
	case target.ResultAgent:
		err = a.focus.FocusSession(ctx, res.Agent.ID)
	case target.ResultBroadcast:
		return "Cannot focus all targets at once."
	default:
		return res.Failure.Message
	}
	if err != nil {
		slog.Error("save focus failed", "target", expr, "error", err)
		return "Error saving focus."
	}
	return fmt.Sprintf("Focused on %s.", res.Name())
}

// parseMessage splits "@<target> <text>" into its parts. A target whose name
// contains spaces is quoted: @"agent:api fixes" <text>. Text without a leading
// "@" goes to the current target.
func parseMessage(s string) (*target.Target, string, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "@") {
		return target.Current(), s, nil
	}
	expr, text, err := splitTarget(s[1:])
	if err != nil {
		return nil, "", err
	}
	t, err := target.Parse(expr)
	if err != nil {
		return nil, "", err
	}
	if text == "" {
		return nil, "", fmt.Errorf("nothing to send to %s", t)
	}
	return t, text, nil
}

// closingQuote maps the opening quotes phone keyboards produce to their pair.
var closingQuote = map[rune]rune{'"': '"', '“': '”', '„': '“', '«': '»'}

// splitTarget separates the target expression from the text. Unquoted
// expressions end at the first whitespace.
func splitTarget(s string) (expr, text string, err error) {
	open, size := utf8.DecodeRuneInString(s)
	if end, ok := closingQuote[open]; ok {
		rest := s[size:]
		i := strings.IndexRune(rest, end)
		if i < 0 {
			return "", "", fmt.Errorf("missing closing quote in target")
		}
		return strings.TrimSpace(rest[:i]), strings.TrimSpace(rest[i+utf8.RuneLen(end):]), nil
	}
	if i := strings.IndexFunc(s, unicode.IsSpace); i >= 0 {
		return s[:i], strings.TrimSpace(s[i:]), nil
	}
	return s, "", nil
}

func formatTargets(entries []target.Entry) string {
	if len(entries) == 0 {
		return "No projects or agents yet."
	}
	var b strings.Builder
	var kind target.Kind
	for _, e := range entries {
		if e.Kind != kind {
			if kind != "" {
				b.WriteString("\n")
			}
			kind = e.Kind
			if kind == target.KindProject {
				b.WriteString("Projects:\n")
			} else {
				b.WriteString("Agents:\n")
			}
		}
		fmt.Fprintf(&b, "  %d. %s\n", e.Ordinal, e.Name)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *Adapter) sendResponse(chatID int64, text string) {
	for _, part := range splitMessage(text) {
		msg := tgbotapi.NewMessage(chatID, part)
		if _, err := a.bot.Send(msg); err != nil {
			slog.Error("send message error", "chat_id", chatID, "error", err)
		}
	}
}

// splitMessage cuts text into chunks of at most maxTelegramMessage bytes
// without splitting a UTF-8 sequence.
func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := maxTelegramMessage
		if end >= len(text) {
			end = len(text)
		} else {
			for end > 0 && !utf8.RuneStart(text[end]) {
				end--
			}
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}
