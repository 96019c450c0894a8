package config

import (
	"context"
	"fmt"
)

// DefaultStackDescription is the profile created on first run: ASCII
// escaping and terminal framing over a segmented, ARQ'd, CRC-16'd link.
const DefaultStackDescription = "ascii,term,segment,arq,crc16"

// Bootstrap creates a default profile if none exist yet.
func (db *DB) Bootstrap(ctx context.Context) error {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&count); err != nil {
		return fmt.Errorf("config: check profiles: %w", err)
	}
	if count > 0 {
		return nil
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO profiles (name, stack, adapter_type, adapter_arg, bridge_host, bridge_port, timeout_ms, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1)
	`, "default", DefaultStackDescription, "serial", "/dev/ttyUSB0", "0.0.0.0", 19026, 1000)
	if err != nil {
		return fmt.Errorf("config: create default profile: %w", err)
	}
	return nil
}

// NeedsBootstrap reports whether no profile exists yet.
func (db *DB) NeedsBootstrap(ctx context.Context) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&count)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}
