package store

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// OpenMySQL connects to MySQL and verifies the connection before the
// seat map is rehydrated from it.
//
// The pool is sized for this service's store traffic, which is narrow by
// construction: place_hold, cancel_hold and seat_get never touch the
// store, and a confirm transaction runs while its per-seat lock is held,
// so confirms occupy at most one connection per distinct seat being
// purchased at once, not one per request.  Refunds are not serialized by a
// seat lock; each uses a connection for its order lookup and short
// transaction.  A small pool with a short idle timeout keeps connections
// from piling up between on-sale spikes.
func OpenMySQL(ctx context.Context, user, pass, host, port, name string) (*sql.DB, error) {
	mc := mysql.NewConfig()
	mc.User = user
	mc.Passwd = pass
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(host, port)
	mc.DBName = name
	// DATETIME columns (the created_at timestamps) scan into time.Time in
	// UTC, matching the UTC_TIMESTAMP() values the store writes.
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}

	db, err := sql.Open("mysql", mc.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("mysql open: %w", err)
	}

	db.SetMaxOpenConns(32)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql ping: %w", err)
	}
	return db, nil
}
