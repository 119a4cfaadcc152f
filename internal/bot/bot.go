// Package bot owns the Matrix session lifecycle: restore-or-login, the
// long-lived receive loop, command dispatch and the weekly digest posts.
package bot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/meri-leeworthy/matrix-bot-calendar/internal/caldav"
	"github.com/meri-leeworthy/matrix-bot-calendar/internal/config"
	"github.com/meri-leeworthy/matrix-bot-calendar/internal/digest"
	appLog "github.com/meri-leeworthy/matrix-bot-calendar/internal/log"
	"github.com/meri-leeworthy/matrix-bot-calendar/internal/schedule"
)

// Bot ties one authenticated Matrix client to the calendar pipeline.
type Bot struct {
	cfg      *config.Config
	client   *mautrix.Client
	session  *Session
	calendar *caldav.Client
}

// New restores a persisted session when one exists, otherwise performs an
// interactive login and persists a fresh record. A login failure is fatal
// for this process invocation and is not retried.
func New(cfg *config.Config) (*Bot, error) {
	sessionFile := SessionPath(cfg.Matrix.DataDir)

	var (
		client *mautrix.Client
		sess   *Session
		err    error
	)

	if SessionExists(sessionFile) {
		appLog.Info("previous session found", "file", sessionFile)
		sess, err = LoadSession(sessionFile)
		if err != nil {
			return nil, fmt.Errorf("restoring session: %w", err)
		}

		rec := sess.Record()
		client, err = mautrix.NewClient(rec.Homeserver, rec.UserID, rec.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("rebuilding client: %w", err)
		}
		client.DeviceID = rec.DeviceID
		appLog.Info("session restored", "user_id", rec.UserID)
	} else {
		client, sess, err = login(cfg, sessionFile)
		if err != nil {
			return nil, err
		}
	}

	client.Store = &syncStore{session: sess}

	return &Bot{
		cfg:      cfg,
		client:   client,
		session:  sess,
		calendar: caldav.NewClient(caldav.Credentials{
			URL:      cfg.CalDAV.URL,
			Username: cfg.CalDAV.Username,
			Password: cfg.CalDAV.Password,
		}),
	}, nil
}

// login authenticates with username/password and persists the new session
// record with an empty cursor.
func login(cfg *config.Config, sessionFile string) (*mautrix.Client, *Session, error) {
	appLog.Info("no previous session found, logging in", "user", cfg.Matrix.Username)

	client, err := mautrix.NewClient(cfg.Matrix.Homeserver, "", "")
	if err != nil {
		return nil, nil, fmt.Errorf("building client: %w", err)
	}

	resp, err := client.Login(context.Background(), &mautrix.ReqLogin{
		Type: mautrix.AuthTypePassword,
		Identifier: mautrix.UserIdentifier{
			Type: mautrix.IdentifierTypeUser,
			User: cfg.Matrix.Username,
		},
		Password:                 cfg.Matrix.Password,
		InitialDeviceDisplayName: "calendar bot",
		StoreCredentials:         true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("login failed: %w", err)
	}

	rec := Record{
		Homeserver:      cfg.Matrix.Homeserver,
		UserID:          resp.UserID,
		DeviceID:        resp.DeviceID,
		AccessToken:     resp.AccessToken,
		StorePath:       filepath.Join(cfg.Matrix.DataDir, randomString(7)),
		StorePassphrase: randomString(32),
	}

	sess, err := NewSession(sessionFile, rec)
	if err != nil {
		return nil, nil, fmt.Errorf("persisting session: %w", err)
	}
	appLog.Info("logged in, session persisted", "user_id", resp.UserID, "file", sessionFile)

	return client, sess, nil
}

// retrySyncer keeps the default syncer's event dispatch but retries failed
// syncs after a floor delay instead of a tight loop. A rejected token is
// unrecoverable and propagates, terminating the process.
type retrySyncer struct {
	*mautrix.DefaultSyncer
	floor time.Duration
}

func (s *retrySyncer) OnFailedSync(_ *mautrix.RespSync, err error) (time.Duration, error) {
	if errors.Is(err, mautrix.MUnknownToken) {
		return 0, err
	}
	appLog.Error("sync failed, retrying", err, "delay", s.floor)
	return s.floor, nil
}

// newSyncer wires event dispatch. The initial batch on a fresh login
// replays recent room history; it is not dispatched, so an old command in
// the timeline cannot trigger a digest at startup.
func (b *Bot) newSyncer() *retrySyncer {
	syncer := mautrix.NewDefaultSyncer()
	syncer.OnSync(b.client.DontProcessOldEvents)
	syncer.OnEventType(event.EventMessage, b.onRoomMessage)
	syncer.OnEventType(event.StateMember, b.onRoomInvite)
	return &retrySyncer{DefaultSyncer: syncer, floor: b.cfg.RetryFloor()}
}

// Run starts the weekly schedulers and drives the receive loop until the
// context is canceled or an unrecoverable transport error occurs.
func (b *Bot) Run(ctx context.Context) error {
	b.client.Syncer = b.newSyncer()

	sched := schedule.New()
	for _, room := range b.cfg.Matrix.Rooms {
		roomID := id.RoomID(room)
		err := sched.AddWeekly(b.cfg.Digest.WeeklyCron, func() {
			b.PostDigest(context.Background(), roomID)
		})
		if err != nil {
			return fmt.Errorf("scheduling weekly digest for %s: %w", roomID, err)
		}
	}
	sched.Start()
	defer sched.Stop()

	appLog.Info("listening for messages", "user_id", b.client.UserID, "rooms", len(b.cfg.Matrix.Rooms))
	return b.client.SyncWithContext(ctx)
}

// onRoomMessage dispatches the digest when a watched room sees a text
// message containing a trigger substring.
func (b *Bot) onRoomMessage(ctx context.Context, evt *event.Event) {
	if evt.Sender == b.client.UserID || !b.watched(evt.RoomID) {
		return
	}

	msg := evt.Content.AsMessage()
	if msg == nil || msg.MsgType != event.MsgText {
		return
	}

	appLog.Info("room message", "room", evt.RoomID, "sender", evt.Sender)

	if containsTrigger(msg.Body) {
		b.PostDigest(ctx, evt.RoomID)
	}
}

// containsTrigger reports whether a message body carries a digest command
// anywhere in its text.
func containsTrigger(body string) bool {
	return strings.Contains(body, "!calendar") || strings.Contains(body, "!cal")
}

// onRoomInvite auto-accepts invites addressed to the bot's own identity.
func (b *Bot) onRoomInvite(ctx context.Context, evt *event.Event) {
	if evt.GetStateKey() != b.client.UserID.String() {
		return
	}
	if evt.Content.AsMember().Membership != event.MembershipInvite {
		return
	}

	appLog.Info("accepting invite", "room", evt.RoomID)
	if _, err := b.client.JoinRoomByID(ctx, evt.RoomID); err != nil {
		appLog.Error("joining room failed", err, "room", evt.RoomID)
		return
	}
	appLog.Info("joined room", "room", evt.RoomID)
}

// BuildDigest runs one fetch-format cycle over the configured window.
func (b *Bot) BuildDigest(ctx context.Context) (body, htmlBody string) {
	now := time.Now().UTC()
	events, err := b.calendar.FetchEvents(ctx, now, now.Add(b.cfg.Window()))
	if err != nil {
		return digest.RenderFailure()
	}
	return digest.Render(events)
}

// PostDigest sends one digest message to the room. Send failures are
// logged, not retried, and never fatal to the loop.
func (b *Bot) PostDigest(ctx context.Context, roomID id.RoomID) {
	body, htmlBody := b.BuildDigest(ctx)

	content := &event.MessageEventContent{
		MsgType:       event.MsgText,
		Body:          body,
		Format:        event.FormatHTML,
		FormattedBody: htmlBody,
	}

	if _, err := b.client.SendMessageEvent(ctx, roomID, event.EventMessage, content); err != nil {
		appLog.Error("sending digest failed", err, "room", roomID)
		return
	}
	appLog.Info("digest sent", "room", roomID)
}

func (b *Bot) watched(roomID id.RoomID) bool {
	for _, room := range b.cfg.Matrix.Rooms {
		if room == roomID.String() {
			return true
		}
	}
	return false
}
