package game

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tinyland-inc/innkeeper/internal/apperr"
	"github.com/tinyland-inc/innkeeper/internal/bus"
	"github.com/tinyland-inc/innkeeper/internal/logging"
	"github.com/tinyland-inc/innkeeper/internal/protocol/codec"
	"github.com/tinyland-inc/innkeeper/internal/protocol/realm"
	"github.com/tinyland-inc/innkeeper/internal/resources"
)

const (
	nameQueryCooldown      = 5 * time.Second
	keepaliveInterval      = 30 * time.Second
	pingInterval           = 30 * time.Second
	rosterInterval         = 60 * time.Second
	pendingSweepInterval   = 10 * time.Second
	logoutCompleteDeadline = 2 * time.Second
	outboundSendDeadline   = 5 * time.Second
)

// Config carries the per-session parameters Client needs to authenticate
// and select a character; everything else (opcode tables, timing) is fixed
// by the protocol itself.
type Config struct {
	Build         uint32
	Account       string
	Password      string
	CharacterName string
	SessionKey    []byte
}

type pendingChatMsg struct {
	msg *MessageChat
	isGM bool
}

// Client owns one logged-in game-server connection: its TCP socket, phase,
// player/guild state, and the periodic work (keepalive, ping, roster
// refresh, name resolution) a steady InWorld session performs. Mirrors the
// original's single-connection-per-session design (protocol/game/handler.rs)
// generalized to Go's connection-owns-its-goroutines idiom instead of an
// actor loop.
type Client struct {
	conn net.Conn
	bus  *bus.Bus
	cfg  Config

	mu          sync.Mutex
	phase       Phase
	playerGUID  uint64
	playerZone  uint32
	playerRace  uint8
	clientSeed  uint32

	nameCache   *NameCache
	pendingChat *PendingByGUID[pendingChatMsg]

	guildID     uint32
	guildRanks  []string
	guildRoster *GuildRoster

	pingSeq        uint32
	pingSentAt     time.Time
	lastLatency    time.Duration
	lastRosterSent time.Time
}

// NewClient wraps an already-dialed game-server connection. Authenticate
// must be called before Run.
func NewClient(conn net.Conn, b *bus.Bus, cfg Config) *Client {
	return &Client{
		conn:        conn,
		bus:         b,
		cfg:         cfg,
		phase:       PhaseConnecting,
		nameCache:   NewNameCache(nameQueryCooldown),
		pendingChat: NewPendingByGUID[pendingChatMsg](),
	}
}

func (c *Client) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
}

// Phase reports the client's current connection phase.
func (c *Client) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Authenticate drives the client through AwaitingAuthChallenge,
// Authenticating, AwaitingCharEnum, and LoggingIn, leaving the client ready
// to enter InWorld via Run. Split from Run so a caller can surface
// authentication failures (fatal per apperr.Fatal) before committing to the
// steady-state goroutines.
func (c *Client) Authenticate(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	c.setPhase(PhaseAwaitingAuthChallenge)
	pkt, err := codec.ReadPacket(c.conn)
	if err != nil {
		return err
	}
	if Opcode(pkt.Opcode) != OpAuthChallenge {
		return apperr.New(apperr.KindProtocol, "expected AUTH_CHALLENGE", map[string]any{"opcode": pkt.Opcode})
	}
	serverSeed, err := ParseAuthChallenge(pkt.Payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.clientSeed = randomSeed()
	clientSeed := c.clientSeed
	c.mu.Unlock()

	sessionPayload := BuildAuthSession(c.cfg.Build, c.cfg.Account, clientSeed, serverSeed, c.cfg.SessionKey)
	if err := codec.WritePacket(c.conn, uint16(OpAuthSession), sessionPayload); err != nil {
		return err
	}

	c.setPhase(PhaseAuthenticating)
	pkt, err = codec.ReadPacket(c.conn)
	if err != nil {
		return err
	}
	if Opcode(pkt.Opcode) != OpAuthResponse {
		return apperr.New(apperr.KindProtocol, "expected AUTH_RESPONSE", map[string]any{"opcode": pkt.Opcode})
	}
	resp, err := ParseAuthResponse(pkt.Payload)
	if err != nil {
		return err
	}
	if !resp.OK {
		result := realm.AuthResult(resp.Result)
		return apperr.New(apperr.KindAuthGame, "game server rejected session auth", map[string]any{"code": result.Code(), "result": resp.Result})
	}

	c.setPhase(PhaseAwaitingCharEnum)
	if err := codec.WritePacket(c.conn, uint16(OpCharEnumRequest), nil); err != nil {
		return err
	}
	pkt, err = codec.ReadPacket(c.conn)
	if err != nil {
		return err
	}
	if Opcode(pkt.Opcode) != OpCharEnum {
		return apperr.New(apperr.KindProtocol, "expected CHAR_ENUM", map[string]any{"opcode": pkt.Opcode})
	}
	characters, err := ParseCharEnum(pkt.Payload)
	if err != nil {
		return err
	}
	chosen, err := FindCharacter(characters, c.cfg.CharacterName)
	if err != nil {
		return err
	}
	for _, ch := range characters {
		c.nameCache.Upsert(ch.GUID, ch.Name)
	}

	c.mu.Lock()
	c.playerGUID = chosen.GUID
	c.playerZone = chosen.ZoneID
	c.playerRace = chosen.Race
	c.guildID = chosen.GuildID
	c.mu.Unlock()

	logger.Info().Str("character", chosen.Name).Uint64("guid", chosen.GUID).Msg("selected character")

	c.setPhase(PhaseLoggingIn)
	if err := codec.WritePacket(c.conn, uint16(OpPlayerLogin), BuildPlayerLogin(chosen.GUID)); err != nil {
		return err
	}
	for {
		pkt, err = codec.ReadPacket(c.conn)
		if err != nil {
			return err
		}
		if Opcode(pkt.Opcode) == OpLoginVerifyWorld {
			verify, err := ParseLoginVerifyWorld(pkt.Payload)
			if err != nil {
				return err
			}
			logger.Debug().Uint32("mapID", verify.MapID).Msg("entered world")
			break
		}
		// Some servers interleave a few world packets (UPDATE_OBJECT etc.)
		// before LOGIN_VERIFY_WORLD; consume and ignore them here.
	}

	c.setPhase(PhaseInWorld)
	return nil
}

// Run drives the InWorld steady state until ctx is canceled or the
// connection fails: a packet-dispatch loop plus sibling goroutines for
// keepalive, ping, and guild-roster refresh, coordinated with errgroup so
// any one failure tears down the rest (spec §4.3's InWorld contract).
func (c *Client) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return c.readLoop(ctx) })
	g.Go(func() error { return c.tickerLoop(ctx, keepaliveInterval, c.sendKeepAlive) })
	g.Go(func() error { return c.tickerLoop(ctx, pingInterval, c.sendPing) })
	g.Go(func() error { return c.tickerLoop(ctx, rosterInterval, c.sendRosterRequest) })
	g.Go(func() error { return c.tickerLoop(ctx, pendingSweepInterval, c.sweepPendingChat) })
	g.Go(func() error { return c.outboundLoop(ctx) })
	g.Go(func() error { return c.commandLoop(ctx) })

	err := g.Wait()
	c.drain(ctx)
	return err
}

func (c *Client) tickerLoop(ctx context.Context, interval time.Duration, fn func(context.Context) error) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if err := fn(ctx); err != nil {
				return err
			}
		}
	}
}

// sweepPendingChat drops chat events that have been waiting on a NAME_QUERY
// reply for longer than pendingTTL, so a GUID whose query never resolves
// can't buffer forever (spec §8's |PendingByGuid| bound).
func (c *Client) sweepPendingChat(ctx context.Context) error {
	logger := logging.FromContext(ctx)
	c.pendingChat.Sweep(time.Now(), pendingTTL, &logger)
	return nil
}

// commandLoop answers !who/!gmotd requests the orchestrator forwards over
// the control conduit, since GuildRoster is owned exclusively by this
// goroutine (spec §5's shared-resources rule) and the orchestrator has no
// other way to read it.
func (c *Client) commandLoop(ctx context.Context) error {
	for {
		req, err := c.bus.ConsumeCommandRequest(ctx)
		if err != nil {
			return err
		}
		resp := c.handleCommandRequest(req)
		if err := c.bus.PublishCommandResponse(ctx, resp); err != nil {
			return err
		}
	}
}

func (c *Client) handleCommandRequest(req bus.CommandRequest) bus.CommandResponse {
	c.mu.Lock()
	roster := c.guildRoster
	c.mu.Unlock()

	if roster == nil {
		return bus.CommandResponse{
			RequestID: req.ID,
			Err:       apperr.New(apperr.KindProtocol, "guild roster not yet available", nil),
		}
	}

	switch req.Kind {
	case "who":
		return bus.CommandResponse{RequestID: req.ID, Content: formatWhoList(roster.Members, req.Args)}
	case "gmotd":
		motd := roster.MOTD
		if motd == "" {
			motd = "No guild MOTD is set."
		}
		return bus.CommandResponse{RequestID: req.ID, Content: motd}
	case "dashboard":
		return bus.CommandResponse{RequestID: req.ID, Content: formatDashboardSnapshot(roster.Members)}
	case "online_count":
		return bus.CommandResponse{RequestID: req.ID, Content: fmt.Sprintf("%d", countOnline(roster.Members))}
	default:
		return bus.CommandResponse{
			RequestID: req.ID,
			Err:       apperr.New(apperr.KindProtocol, "unknown command kind", map[string]any{"kind": req.Kind}),
		}
	}
}

// formatWhoList renders the online guild roster (spec §4.5.1's !who/!online),
// optionally filtered by a case-insensitive substring of the member name.
func formatWhoList(members []GuildRosterMember, filter string) string {
	needle := strings.ToLower(strings.TrimSpace(filter))
	var online []GuildRosterMember
	for _, m := range members {
		if !m.Online {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(m.Name), needle) {
			continue
		}
		online = append(online, m)
	}
	if len(online) == 0 {
		return "No matching guild members are online."
	}
	sort.Slice(online, func(i, j int) bool { return strings.ToLower(online[i].Name) < strings.ToLower(online[j].Name) })

	var b strings.Builder
	fmt.Fprintf(&b, "%d online:\n", len(online))
	for _, m := range online {
		fmt.Fprintf(&b, "%s - Level %d %s (%s)\n", m.Name, m.Level, m.Class.Name(), resources.ZoneName(m.ZoneID))
	}
	return strings.TrimRight(b.String(), "\n")
}

func countOnline(members []GuildRosterMember) int {
	n := 0
	for _, m := range members {
		if m.Online {
			n++
		}
	}
	return n
}

// formatDashboardSnapshot groups online guild members by class for the
// supplemented guild-dashboard embed (spec §4.5.3).
func formatDashboardSnapshot(members []GuildRosterMember) string {
	byClass := make(map[resources.Class][]string)
	total := 0
	for _, m := range members {
		if !m.Online {
			continue
		}
		byClass[m.Class] = append(byClass[m.Class], m.Name)
		total++
	}
	if total == 0 {
		return "No guild members online."
	}

	classes := make([]resources.Class, 0, len(byClass))
	for class := range byClass {
		classes = append(classes, class)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name() < classes[j].Name() })

	var b strings.Builder
	fmt.Fprintf(&b, "%d online\n", total)
	for _, class := range classes {
		names := byClass[class]
		sort.Strings(names)
		fmt.Fprintf(&b, "%s (%d): %s\n", class.Name(), len(names), strings.Join(names, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (c *Client) outboundLoop(ctx context.Context) error {
	for {
		msg, err := c.bus.ConsumeWowOutbound(ctx)
		if err != nil {
			return err
		}
		if err := c.HandleSendChat(ChatType(msg.ChatType), msg.Target, msg.Channel, msg.Text); err != nil {
			logger := logging.FromContext(ctx)
			logger.Warn().Err(err).Msg("failed to send outbound chat")
		}
	}
}

func (c *Client) readLoop(ctx context.Context) error {
	for {
		pkt, err := codec.ReadPacket(c.conn)
		if err != nil {
			return err
		}
		if err := c.dispatch(ctx, pkt); err != nil {
			logger := logging.FromContext(ctx)
			logger.Warn().Err(err).Uint16("opcode", pkt.Opcode).Msg("dropping malformed packet")
		}
	}
}

// dispatch handles one inbound packet per the opcode table in spec §4.3.1.
// Unknown opcodes are logged at debug and skipped without closing the
// connection.
func (c *Client) dispatch(ctx context.Context, pkt *codec.Packet) error {
	logger := logging.FromContext(ctx)
	switch Opcode(pkt.Opcode) {
	case OpTimeSyncReq:
		cur := codec.NewCursor(pkt.Payload)
		counter, err := cur.Uint32LE()
		if err != nil {
			return err
		}
		return codec.WritePacket(c.conn, uint16(OpTimeSyncResp), codec.NewWriter().Uint32LE(counter).Bytes())

	case OpAuthChallenge:
		logger.Debug().Msg("ignoring AUTH_CHALLENGE received after InWorld")
		return nil

	case OpMessageChat, OpGMMessageChat:
		return c.handleChat(ctx, pkt.Payload, Opcode(pkt.Opcode) == OpGMMessageChat)

	case OpNameQueryResponse:
		return c.handleNameQueryResponse(ctx, pkt.Payload)

	case OpChannelNotify:
		notify, err := ParseChannelNotify(pkt.Payload)
		if err != nil {
			return err
		}
		logger.Info().Str("description", notify.Description()).Msg("channel notification")
		return nil

	case OpNotification, OpServerMessage, OpMOTD:
		cur := codec.NewCursor(pkt.Payload)
		text, err := cur.CString(512)
		if err != nil {
			return err
		}
		return c.bus.PublishWowChat(ctx, bus.WowChatEvent{
			ChatType:   uint8(ChatSystem),
			Text:       text,
			ReceivedAt: time.Now(),
		})

	case OpInvalidatePlayer:
		cur := codec.NewCursor(pkt.Payload)
		guid, err := cur.Uint64LE()
		if err != nil {
			return err
		}
		c.nameCache.Evict(guid)
		return nil

	case OpGuildQuery:
		resp, err := ParseGuildQueryResponse(pkt.Payload)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.guildRanks = resp.Ranks
		c.mu.Unlock()
		return nil

	case OpGuildRoster:
		roster, err := ParseGuildRoster(pkt.Payload)
		if err != nil {
			return err
		}
		c.handleGuildRoster(ctx, roster)
		return nil

	case OpGuildEvent:
		return c.handleGuildEvent(ctx, pkt.Payload)

	case OpChatPlayerNotFound:
		logger.Warn().Msg("whisper target not found")
		return nil

	case OpLoginVerifyWorld:
		logger.Debug().Msg("late LOGIN_VERIFY_WORLD, already InWorld")
		return nil

	case OpUpdateObject, OpInitWorldStates:
		return nil // consumed, not decoded further

	case OpPong:
		cur := codec.NewCursor(pkt.Payload)
		seq, err := cur.Uint32LE()
		if err != nil {
			return err
		}
		c.mu.Lock()
		if seq == c.pingSeq {
			c.lastLatency = time.Since(c.pingSentAt)
		}
		c.mu.Unlock()
		return nil

	case OpLogoutComplete:
		logger.Info().Msg("logout complete")
		return nil

	default:
		logger.Debug().Str("opcode", Opcode(pkt.Opcode).String()).Msg("unhandled opcode")
		return nil
	}
}

func (c *Client) handleChat(ctx context.Context, payload []byte, isGM bool) error {
	msg, err := ParseMessageChat(payload, isGM)
	if err != nil {
		return err
	}

	if name, ok := c.nameCache.Lookup(msg.SenderGUID); ok {
		return c.emitChat(ctx, msg, name)
	}

	c.pendingChat.Enqueue(msg.SenderGUID, pendingChatMsg{msg: msg, isGM: isGM}, time.Now())
	if c.nameCache.ShouldQuery(msg.SenderGUID, time.Now()) {
		if err := codec.WritePacket(c.conn, uint16(OpNameQueryRequest), BuildNameQuery(msg.SenderGUID)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) handleNameQueryResponse(ctx context.Context, payload []byte) error {
	resp, err := ParseNameQueryResponse(payload)
	if err != nil {
		return err
	}
	c.nameCache.Upsert(resp.GUID, resp.Name)

	for _, pending := range c.pendingChat.Drain(resp.GUID) {
		if err := c.emitChat(ctx, pending.msg, resp.Name); err != nil {
			logger := logging.FromContext(ctx)
			logger.Warn().Err(err).Msg("failed to emit deferred chat event")
		}
	}
	return nil
}

func (c *Client) emitChat(ctx context.Context, msg *MessageChat, senderName string) error {
	return c.bus.PublishWowChat(ctx, bus.WowChatEvent{
		ChatType:    uint8(msg.ChatType),
		Language:    uint32(msg.Language),
		SenderGUID:  msg.SenderGUID,
		SenderName:  senderName,
		ChannelName: msg.ChannelName,
		Text:        msg.Text,
		ChatTag:     msg.ChatTag,
		ReceivedAt:  time.Now(),
	})
}

func (c *Client) handleGuildRoster(ctx context.Context, roster *GuildRoster) {
	c.mu.Lock()
	previous := c.guildRoster
	c.guildRoster = roster
	c.mu.Unlock()

	if previous == nil {
		return
	}
	wasOnline := make(map[uint64]bool, len(previous.Members))
	for _, m := range previous.Members {
		wasOnline[m.GUID] = m.Online
	}
	for _, m := range roster.Members {
		if prevOnline, known := wasOnline[m.GUID]; known && prevOnline != m.Online {
			kind := "offline"
			if m.Online {
				kind = "online"
			}
			_ = c.bus.PublishGuildEvent(ctx, bus.GuildEventEnvelope{
				Kind:       kind,
				ActorName:  m.Name,
				Text:       m.Name + " has come " + kind,
				ReceivedAt: time.Now(),
			})
		}
	}
}

func (c *Client) handleGuildEvent(ctx context.Context, payload []byte) error {
	ev, err := ParseGuildEvent(payload)
	if err != nil {
		return err
	}
	text, ok := ev.FormatNotification()
	if !ok {
		return nil
	}
	var actor, target string
	if len(ev.Strings) > 0 {
		actor = ev.Strings[0]
	}
	if len(ev.Strings) > 1 {
		target = ev.Strings[1]
	}
	return c.bus.PublishGuildEvent(ctx, bus.GuildEventEnvelope{
		Kind:       guildEventKindName(ev.Kind),
		ActorName:  actor,
		TargetName: target,
		Text:       text,
		ReceivedAt: time.Now(),
	})
}

func guildEventKindName(k GuildEventKind) string {
	switch k {
	case GEPromotion:
		return "promoted"
	case GEDemotion:
		return "demoted"
	case GEMotd:
		return "motd"
	case GEJoined:
		return "joined"
	case GELeft:
		return "left"
	case GERemoved:
		return "removed"
	case GESignedOn:
		return "online"
	case GESignedOff:
		return "offline"
	default:
		return "unknown"
	}
}

func (c *Client) sendKeepAlive(ctx context.Context) error {
	return codec.WritePacket(c.conn, uint16(OpKeepAlive), nil)
}

func (c *Client) sendPing(ctx context.Context) error {
	c.mu.Lock()
	c.pingSeq++
	seq := c.pingSeq
	c.pingSentAt = time.Now()
	latency := uint32(c.lastLatency / time.Millisecond)
	c.mu.Unlock()

	payload := codec.NewWriter().Uint32LE(seq).Uint32LE(latency).Bytes()
	return codec.WritePacket(c.conn, uint16(OpPing), payload)
}

func (c *Client) sendRosterRequest(ctx context.Context) error {
	c.mu.Lock()
	c.lastRosterSent = time.Now()
	c.mu.Unlock()
	return codec.WritePacket(c.conn, uint16(OpGuildRosterRequest), nil)
}

// HandleSendChat builds and sends a CMSG_MESSAGECHAT for the outbound
// message the orchestrator asked for (spec §4.3.4); chatType/target/channel
// follow the same vocabulary as inbound chat so no separate outbound
// opcode table is needed.
func (c *Client) HandleSendChat(chatType ChatType, target, channel, text string) error {
	dest := target
	if chatType == ChatChannel {
		dest = channel
	}
	language := LanguageForRace(c.raceSnapshot())
	payload := BuildSendChatMessage(chatType, language, dest, text)

	_ = c.conn.SetWriteDeadline(time.Now().Add(outboundSendDeadline))
	defer c.conn.SetWriteDeadline(time.Time{})
	return codec.WritePacket(c.conn, uint16(OpMessageChatSend), payload)
}

func (c *Client) raceSnapshot() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerRace
}

// drain best-effort flushes whatever outbound chat is still queued, sends
// LOGOUT_REQUEST, and waits (bounded) for LOGOUT_COMPLETE before the caller
// closes the connection, per spec §4.3's Draining phase. outboundLoop has
// already stopped consuming by the time Run's errgroup returns, so this is
// the last chance for any WowOutbound message sitting in the bus to go out.
func (c *Client) drain(ctx context.Context) {
	c.setPhase(PhaseDraining)
	for {
		msg, ok := c.bus.TryConsumeWowOutbound()
		if !ok {
			break
		}
		if err := c.HandleSendChat(ChatType(msg.ChatType), msg.Target, msg.Channel, msg.Text); err != nil {
			logger := logging.FromContext(ctx)
			logger.Warn().Err(err).Msg("failed to flush outbound chat during drain")
		}
	}
	_ = codec.WritePacket(c.conn, uint16(OpLogoutRequest), nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			pkt, err := codec.ReadPacket(c.conn)
			if err != nil {
				return
			}
			if Opcode(pkt.Opcode) == OpLogoutComplete {
				return
			}
		}
	}()
	select {
	case <-done:
	case <-time.After(logoutCompleteDeadline):
	}
	c.setPhase(PhaseClosed)
}

func randomSeed() uint32 {
	return uint32(time.Now().UnixNano())
}
