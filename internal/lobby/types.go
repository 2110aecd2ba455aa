// Package lobby publishes where a host is listening so a guest can find it by game id.
package lobby

import "time"

// Entry is stored as JSON in Redis under peerchess:game:<id>.
type Entry struct {
    GameID    uint32    `json:"game_id"`
    Addr      string    `json:"addr"`
    Transport string    `json:"transport"`
    HostWhite bool      `json:"host_white"`
    Claimed   bool      `json:"claimed"`
    CreatedAt time.Time `json:"created_at"`
}

// Errors
var (
    ErrInvalidArgs = errf("invalid arguments")
    ErrGameGone    = errf("game not found or expired")
    ErrGameTaken   = errf("game already has a guest")
    ErrNoRedis     = errf("REDIS_URL required for game directory")
)

type staticErr string
func (e staticErr) Error() string { return string(e) }
func errf(s string) error { return staticErr(s) }
