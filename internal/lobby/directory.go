package lobby

import (
    "context"
    "crypto/rand"
    "encoding/binary"
    "encoding/json"
    "errors"
    "fmt"
    "strconv"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/park285/Cheese-PeerChess/internal/obslog"
)

const (
    ttlGame      = 24 * time.Hour
    allocAttempts = 5
    claimRetries  = 3
)

type Directory struct {
    rdb *redis.Client
    ttl time.Duration
}

func New(rdb *redis.Client) *Directory { return &Directory{rdb: rdb, ttl: ttlGame} }

// Open connects to REDIS_URL and checks the server is reachable.
func Open(ctx context.Context, redisURL string) (*Directory, error) {
    if strings.TrimSpace(redisURL) == "" { return nil, ErrNoRedis }
    opts, err := redis.ParseURL(redisURL)
    if err != nil { return nil, fmt.Errorf("parse REDIS_URL: %w", err) }
    rdb := redis.NewClient(opts)
    if err := rdb.Ping(ctx).Err(); err != nil {
        _ = rdb.Close()
        return nil, fmt.Errorf("redis ping: %w", err)
    }
    return New(rdb), nil
}

func (d *Directory) Close() error {
    if d == nil || d.rdb == nil { return nil }
    return d.rdb.Close()
}

func keyGame(id uint32) string { return "peerchess:game:" + strconv.FormatUint(uint64(id), 10) }

// Register allocates a fresh non-zero game id for a host listening on addr.
func (d *Directory) Register(ctx context.Context, addr, transport string, hostWhite bool) (*Entry, error) {
    if strings.TrimSpace(addr) == "" { return nil, ErrInvalidArgs }
    for i := 0; i < allocAttempts; i++ {
        id, err := gameIDGen()
        if err != nil { return nil, err }
        e := &Entry{GameID: id, Addr: addr, Transport: transport, HostWhite: hostWhite, CreatedAt: time.Now()}
        raw, err := json.Marshal(e)
        if err != nil { return nil, err }
        // only set if the id is unused
        ok, err := d.rdb.SetNX(ctx, keyGame(id), raw, d.ttl).Result()
        if err != nil { return nil, err }
        if ok {
            obslog.L().Info("lobby_register", zap.Uint32("game_id", id), zap.String("addr", addr), zap.String("transport", transport))
            return e, nil
        }
    }
    return nil, fmt.Errorf("failed to allocate game id")
}

func (d *Directory) Resolve(ctx context.Context, gameID uint32) (*Entry, error) {
    if gameID == 0 { return nil, ErrInvalidArgs }
    raw, err := d.rdb.Get(ctx, keyGame(gameID)).Bytes()
    if err == redis.Nil { return nil, ErrGameGone }
    if err != nil { return nil, err }
    var e Entry
    if err := json.Unmarshal(raw, &e); err != nil { return nil, err }
    return &e, nil
}

// Claim marks the game as taken by a guest. A second claim fails with ErrGameTaken.
func (d *Directory) Claim(ctx context.Context, gameID uint32) (*Entry, error) {
    if gameID == 0 { return nil, ErrInvalidArgs }
    key := keyGame(gameID)
    var claimed *Entry
    var err error
    for i := 0; i < claimRetries; i++ {
        err = d.rdb.Watch(ctx, func(tx *redis.Tx) error {
            raw, err := tx.Get(ctx, key).Bytes()
            if err == redis.Nil { return ErrGameGone }
            if err != nil { return err }
            var cur Entry
            if jerr := json.Unmarshal(raw, &cur); jerr != nil { return jerr }
            if cur.Claimed { return ErrGameTaken }
            ttl, err := tx.TTL(ctx, key).Result()
            if err != nil { return err }
            if ttl <= 0 { ttl = d.ttl }
            cur.Claimed = true
            newRaw, err := json.Marshal(&cur)
            if err != nil { return err }

            pipe := tx.TxPipeline()
            pipe.Set(ctx, key, newRaw, ttl)
            if _, err := pipe.Exec(ctx); err != nil { return err }
            claimed = &cur
            return nil
        }, key)
        // retry only on a concurrent write
        if !errors.Is(err, redis.TxFailedErr) { break }
    }
    if err != nil {
        obslog.L().Warn("lobby_claim_error", zap.Uint32("game_id", gameID), zap.Error(err))
        return nil, err
    }
    obslog.L().Info("lobby_claim", zap.Uint32("game_id", gameID), zap.String("addr", claimed.Addr))
    return claimed, nil
}

func (d *Directory) Remove(ctx context.Context, gameID uint32) error {
    if gameID == 0 { return nil }
    return d.rdb.Del(ctx, keyGame(gameID)).Err()
}

// gameIDGen returns a random id in 1..2^32-1.
func gameIDGen() (uint32, error) {
    var b [4]byte
    for {
        if _, err := rand.Read(b[:]); err != nil { return 0, err }
        if id := binary.BigEndian.Uint32(b[:]); id != 0 { return id, nil }
    }
}
