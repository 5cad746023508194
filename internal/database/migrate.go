package database

import (
	"context"
	"database/sql"
)

// Schema statements executed at startup. CREATE TABLE IF NOT EXISTS
// keeps this idempotent so the server can be pointed at an empty
// database and come up fully usable.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		name VARCHAR(120) NOT NULL,
		email VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role ENUM('user','admin','head') NOT NULL DEFAULT 'user',
		phone VARCHAR(32) NULL,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_users_email (email)
	)`,
	`CREATE TABLE IF NOT EXISTS districts (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		name VARCHAR(120) NOT NULL,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		PRIMARY KEY (id),
		UNIQUE KEY uq_districts_name (name)
	)`,
	`CREATE TABLE IF NOT EXISTS routes (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		district_id BIGINT UNSIGNED NOT NULL,
		name VARCHAR(120) NOT NULL,
		code VARCHAR(32) NOT NULL,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		PRIMARY KEY (id),
		KEY idx_routes_name (name),
		KEY idx_routes_code (code),
		CONSTRAINT fk_routes_district FOREIGN KEY (district_id) REFERENCES districts(id)
	)`,
	`CREATE TABLE IF NOT EXISTS buses (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		bus_number VARCHAR(32) NOT NULL,
		route_id BIGINT UNSIGNED NOT NULL,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		PRIMARY KEY (id),
		UNIQUE KEY uq_buses_number (bus_number),
		CONSTRAINT fk_buses_route FOREIGN KEY (route_id) REFERENCES routes(id)
	)`,
	`CREATE TABLE IF NOT EXISTS admin_assignments (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		admin_id BIGINT UNSIGNED NOT NULL,
		route_id BIGINT UNSIGNED NOT NULL,
		district_id BIGINT UNSIGNED NOT NULL,
		priority ENUM('high','medium','low') NOT NULL DEFAULT 'medium',
		assigned_by BIGINT UNSIGNED NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_assignments_route (route_id),
		KEY idx_assignments_admin (admin_id),
		CONSTRAINT fk_assignments_admin FOREIGN KEY (admin_id) REFERENCES users(id) ON DELETE CASCADE,
		CONSTRAINT fk_assignments_route FOREIGN KEY (route_id) REFERENCES routes(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS complaints (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user_id BIGINT UNSIGNED NOT NULL,
		category VARCHAR(64) NOT NULL DEFAULT 'general',
		description TEXT NOT NULL,
		route VARCHAR(120) NOT NULL DEFAULT '',
		bus_number VARCHAR(32) NOT NULL DEFAULT '',
		status ENUM('pending','in-progress','resolved') NOT NULL DEFAULT 'pending',
		assigned_to BIGINT UNSIGNED NULL,
		district_id BIGINT UNSIGNED NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_complaints_user (user_id),
		KEY idx_complaints_assignee (assigned_to),
		CONSTRAINT fk_complaints_user FOREIGN KEY (user_id) REFERENCES users(id)
	)`,
	`CREATE TABLE IF NOT EXISTS pending_otps (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		email VARCHAR(255) NOT NULL,
		flow ENUM('registration','password_reset') NOT NULL,
		name VARCHAR(120) NULL,
		password_hash VARCHAR(255) NULL,
		otp_hash CHAR(64) NOT NULL,
		expires_at DATETIME NOT NULL,
		used TINYINT(1) NOT NULL DEFAULT 0,
		ip_address VARCHAR(64) NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_pending_email_flow (email, flow)
	)`,
	`CREATE TABLE IF NOT EXISTS otp_rate_limits (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		email VARCHAR(255) NOT NULL,
		request_count INT NOT NULL DEFAULT 1,
		window_start DATETIME NOT NULL,
		last_request DATETIME NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_rate_email (email)
	)`,
}

// EnsureSchema creates any missing tables. Statement order matters
// because of the foreign keys.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
