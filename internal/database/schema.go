package database

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS app_config (
		id INTEGER PRIMARY KEY,
		active_account_id INTEGER,
		settings TEXT NOT NULL DEFAULT '{}'
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		external_user_id TEXT,
		business_id TEXT NOT NULL UNIQUE,
		page_id TEXT NOT NULL DEFAULT '',
		access_token TEXT NOT NULL DEFAULT '',
		display_name TEXT NOT NULL DEFAULT '',
		avatar_url TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS flows (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		trigger_type TEXT NOT NULL DEFAULT 'comment',
		trigger_keyword TEXT,
		attached_media_id TEXT,
		action_json TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS scheduled_posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_refs TEXT NOT NULL DEFAULT '[]',
		caption TEXT NOT NULL DEFAULT '',
		media_type TEXT NOT NULL DEFAULT 'REEL',
		publish_at DATETIME NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		linked_flow_id TEXT,
		remote_media_id TEXT,
		error_message TEXT,
		claim_token TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS message_queue (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		recipient_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		payload_json TEXT NOT NULL DEFAULT '{}',
		message_type TEXT NOT NULL DEFAULT 'TEXT',
		source TEXT NOT NULL,
		origin_comment_id TEXT,
		flow_id TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		executed_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS leads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT,
		email TEXT,
		phone TEXT,
		source TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		level TEXT NOT NULL DEFAULT 'INFO',
		message TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_mq_status ON message_queue(status)`,
	`CREATE INDEX IF NOT EXISTS idx_mq_executed_at ON message_queue(executed_at)`,
	`CREATE INDEX IF NOT EXISTS idx_mq_origin_comment ON message_queue(origin_comment_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sp_status_publish_at ON scheduled_posts(status, publish_at)`,
	`CREATE INDEX IF NOT EXISTS idx_flows_active ON flows(is_active)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS app_config (
		id BIGINT PRIMARY KEY,
		active_account_id BIGINT,
		settings TEXT NOT NULL DEFAULT '{}'
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id BIGSERIAL PRIMARY KEY,
		external_user_id TEXT,
		business_id TEXT NOT NULL UNIQUE,
		page_id TEXT NOT NULL DEFAULT '',
		access_token TEXT NOT NULL DEFAULT '',
		display_name TEXT NOT NULL DEFAULT '',
		avatar_url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS flows (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		trigger_type TEXT NOT NULL DEFAULT 'comment',
		trigger_keyword TEXT,
		attached_media_id TEXT,
		action_json TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS scheduled_posts (
		id BIGSERIAL PRIMARY KEY,
		file_refs TEXT NOT NULL DEFAULT '[]',
		caption TEXT NOT NULL DEFAULT '',
		media_type TEXT NOT NULL DEFAULT 'REEL',
		publish_at TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		linked_flow_id TEXT,
		remote_media_id TEXT,
		error_message TEXT,
		claim_token TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS message_queue (
		id BIGSERIAL PRIMARY KEY,
		recipient_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		payload_json TEXT NOT NULL DEFAULT '{}',
		message_type TEXT NOT NULL DEFAULT 'TEXT',
		source TEXT NOT NULL,
		origin_comment_id TEXT,
		flow_id TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		executed_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS leads (
		id BIGSERIAL PRIMARY KEY,
		username TEXT,
		email TEXT,
		phone TEXT,
		source TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS logs (
		id BIGSERIAL PRIMARY KEY,
		level TEXT NOT NULL DEFAULT 'INFO',
		message TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_mq_status ON message_queue(status)`,
	`CREATE INDEX IF NOT EXISTS idx_mq_executed_at ON message_queue(executed_at)`,
	`CREATE INDEX IF NOT EXISTS idx_mq_origin_comment ON message_queue(origin_comment_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sp_status_publish_at ON scheduled_posts(status, publish_at)`,
	`CREATE INDEX IF NOT EXISTS idx_flows_active ON flows(is_active)`,
}
