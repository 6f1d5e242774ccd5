package store

import "context"

// migrate applies idempotent CREATE TABLE IF NOT EXISTS statements for every table
// named in spec §6 "Persisted-state layout" except search_index, which this core
// builds as an in-memory inverted index from the videos table on demand (see
// internal/search) rather than maintaining a second persisted copy.
func (d *DB) migrate(ctx context.Context) error {
	stmts := []string{
		videosTableDDL,
		sourcesTableDDL,
		sourceHealthTableDDL,
		categoryMappingsTableDDL,
		subCategoriesTableDDL,
		tasksTableDDL,
		collectLogsTableDDL,
		accessLogTableDDL,
		recommendationsTableDDL,
		ratingsTableDDL,
		viewerHistoryTableDDL,
	}
	for _, s := range stmts {
		if _, err := d.Conn.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

const videosTableDDL = `
CREATE TABLE IF NOT EXISTS videos (
	video_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	year INTEGER,
	area TEXT,
	language TEXT,
	actors TEXT,
	directors TEXT,
	synopsis TEXT,
	tags TEXT,
	cover_url TEXT,
	thumb_url TEXT,
	remarks TEXT,
	rating DOUBLE,
	rating_source TEXT,
	type_id INTEGER NOT NULL,
	sub_type_id INTEGER,
	play_urls TEXT NOT NULL DEFAULT '{}',
	source_names TEXT NOT NULL DEFAULT '[]',
	source_priority INTEGER DEFAULT 0,
	quality_score INTEGER DEFAULT 0,
	is_valid BOOLEAN NOT NULL DEFAULT TRUE,
	preview_episode INTEGER,
	preview_url TEXT,
	shorts_category TEXT,
	hits_day BIGINT DEFAULT 0,
	hits_week BIGINT DEFAULT 0,
	hits_month BIGINT DEFAULT 0,
	hits_alltime BIGINT DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

const sourcesTableDDL = `
CREATE TABLE IF NOT EXISTS sources (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	base_url TEXT NOT NULL,
	weight INTEGER NOT NULL DEFAULT 1,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	format TEXT NOT NULL DEFAULT 'auto',
	welfare BOOLEAN NOT NULL DEFAULT FALSE
);`

const sourceHealthTableDDL = `
CREATE TABLE IF NOT EXISTS source_health (
	source_id TEXT PRIMARY KEY,
	status TEXT NOT NULL DEFAULT 'unknown',
	last_response_ms BIGINT DEFAULT 0,
	avg_response_ms DOUBLE DEFAULT 0,
	success_rate DOUBLE DEFAULT 0,
	total_checks BIGINT DEFAULT 0,
	success_checks BIGINT DEFAULT 0,
	consecutive_failures INTEGER DEFAULT 0,
	last_error TEXT,
	last_error_at TIMESTAMP,
	last_video_count INTEGER DEFAULT 0,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

const categoryMappingsTableDDL = `
CREATE TABLE IF NOT EXISTS category_mappings (
	source_id TEXT NOT NULL,
	upstream_type_id TEXT NOT NULL,
	upstream_type_name TEXT,
	type_id INTEGER NOT NULL,
	PRIMARY KEY (source_id, upstream_type_id)
);`

const subCategoriesTableDDL = `
CREATE TABLE IF NOT EXISTS sub_categories (
	type_id INTEGER NOT NULL,
	sub_type_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	PRIMARY KEY (type_id, sub_type_id)
);`

const tasksTableDDL = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	status TEXT NOT NULL,
	priority INTEGER NOT NULL DEFAULT 5,
	config TEXT NOT NULL DEFAULT '{}',
	progress TEXT NOT NULL DEFAULT '{}',
	checkpoint TEXT,
	last_error TEXT,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	started_at TIMESTAMP,
	paused_at TIMESTAMP,
	completed_at TIMESTAMP
);`

const collectLogsTableDDL = `
CREATE TABLE IF NOT EXISTS collect_logs (
	id BIGINT,
	task_id TEXT NOT NULL,
	level TEXT NOT NULL,
	action TEXT NOT NULL,
	message TEXT NOT NULL,
	source_name TEXT,
	video_id TEXT,
	video_name TEXT,
	details TEXT,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

const accessLogTableDDL = `
CREATE TABLE IF NOT EXISTS access_log (
	video_id TEXT NOT NULL,
	day DATE NOT NULL,
	hits BIGINT NOT NULL DEFAULT 0,
	PRIMARY KEY (video_id, day)
);`

const recommendationsTableDDL = `
CREATE TABLE IF NOT EXISTS recommendations (
	video_id TEXT NOT NULL,
	algorithm TEXT NOT NULL,
	similar_video_id TEXT NOT NULL,
	confidence DOUBLE NOT NULL,
	computed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (video_id, algorithm, similar_video_id)
);`

const ratingsTableDDL = `
CREATE TABLE IF NOT EXISTS ratings (
	video_id TEXT PRIMARY KEY,
	score DOUBLE,
	votes BIGINT,
	external_id TEXT,
	status TEXT NOT NULL DEFAULT 'pending',
	fetched_at TIMESTAMP
);`

// viewerHistoryTableDDL backs the personalized/collaborative recommendation
// strategies' watch-history lookups. Not named in the persisted-state layout
// directly but required by its "collaborative: based on similar users'
// watch history" description; user_id is caller-supplied (an API key, device
// id, or session token — this core does not define account identity).
const viewerHistoryTableDDL = `
CREATE TABLE IF NOT EXISTS viewer_history (
	user_id TEXT NOT NULL,
	video_id TEXT NOT NULL,
	watched_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (user_id, video_id, watched_at)
);`
