package store

// DDL executed by Scylla.Migrate. Structured columns are JSON text; every
// projection of note or home_timeline is a materialized view so the fan-out
// writer only ever writes the two base tables.

const noteColumnDefs = `
	"createdAtDate" timestamp,
	"createdAt" timestamp,
	"id" text,
	"visibility" text,
	"content" text,
	"cw" text,
	"renoteCount" int,
	"repliesCount" int,
	"score" int,
	"files" text,
	"visibleUserIds" text,
	"mentions" text,
	"tags" text,
	"hasPoll" boolean,
	"poll" text,
	"channelId" text,
	"userId" text,
	"userHost" text,
	"replyId" text,
	"replyUserId" text,
	"replyUserHost" text,
	"replyContent" text,
	"replyCw" text,
	"replyFiles" text,
	"renoteId" text,
	"renoteUserId" text,
	"renoteUserHost" text,
	"renoteContent" text,
	"renoteCw" text,
	"renoteFiles" text,
	"reactions" text,
	"noteEdit" text,
	"updatedAt" timestamp,`

var schema = []string{
	`CREATE TABLE IF NOT EXISTS note (` + noteColumnDefs + `
	PRIMARY KEY ("createdAtDate", "createdAt", "userId")
) WITH CLUSTERING ORDER BY ("createdAt" DESC)`,

	`CREATE MATERIALIZED VIEW IF NOT EXISTS note_by_id AS
	SELECT * FROM note
	WHERE "id" IS NOT NULL AND "createdAtDate" IS NOT NULL AND "createdAt" IS NOT NULL AND "userId" IS NOT NULL
	PRIMARY KEY ("id", "createdAtDate", "createdAt", "userId")`,

	`CREATE MATERIALIZED VIEW IF NOT EXISTS note_by_user_id AS
	SELECT * FROM note
	WHERE "userId" IS NOT NULL AND "createdAtDate" IS NOT NULL AND "createdAt" IS NOT NULL
	PRIMARY KEY ("userId", "createdAt", "createdAtDate")
	WITH CLUSTERING ORDER BY ("createdAt" DESC)`,

	`CREATE MATERIALIZED VIEW IF NOT EXISTS note_by_renote_id AS
	SELECT * FROM note
	WHERE "renoteId" IS NOT NULL AND "createdAtDate" IS NOT NULL AND "createdAt" IS NOT NULL AND "userId" IS NOT NULL
	PRIMARY KEY ("renoteId", "createdAt", "createdAtDate", "userId")
	WITH CLUSTERING ORDER BY ("createdAt" DESC)`,

	`CREATE MATERIALIZED VIEW IF NOT EXISTS note_by_renote_id_and_user_id AS
	SELECT * FROM note
	WHERE "renoteId" IS NOT NULL AND "userId" IS NOT NULL AND "createdAtDate" IS NOT NULL AND "createdAt" IS NOT NULL
	PRIMARY KEY (("renoteId", "userId"), "createdAt", "createdAtDate")
	WITH CLUSTERING ORDER BY ("createdAt" DESC)`,

	`CREATE MATERIALIZED VIEW IF NOT EXISTS note_by_channel_id AS
	SELECT * FROM note
	WHERE "channelId" IS NOT NULL AND "createdAtDate" IS NOT NULL AND "createdAt" IS NOT NULL AND "userId" IS NOT NULL
	PRIMARY KEY ("channelId", "createdAt", "createdAtDate", "userId")
	WITH CLUSTERING ORDER BY ("createdAt" DESC)`,

	`CREATE TABLE IF NOT EXISTS home_timeline (
	"feedUserId" text,` + noteColumnDefs + `
	PRIMARY KEY (("feedUserId", "createdAtDate"), "createdAt", "userId")
) WITH CLUSTERING ORDER BY ("createdAt" DESC)`,

	`CREATE MATERIALIZED VIEW IF NOT EXISTS home_timeline_by_id AS
	SELECT * FROM home_timeline
	WHERE "id" IS NOT NULL AND "feedUserId" IS NOT NULL AND "createdAtDate" IS NOT NULL AND "createdAt" IS NOT NULL AND "userId" IS NOT NULL
	PRIMARY KEY ("id", "feedUserId", "createdAtDate", "createdAt", "userId")`,

	`CREATE MATERIALIZED VIEW IF NOT EXISTS local_timeline AS
	SELECT * FROM note
	WHERE "createdAtDate" IS NOT NULL AND "createdAt" IS NOT NULL AND "userId" IS NOT NULL
		AND "visibility" = 'public' AND "userHost" = '' AND "channelId" = ''
	PRIMARY KEY ("createdAtDate", "createdAt", "userId")
	WITH CLUSTERING ORDER BY ("createdAt" DESC)`,

	`CREATE MATERIALIZED VIEW IF NOT EXISTS global_timeline AS
	SELECT * FROM note
	WHERE "createdAtDate" IS NOT NULL AND "createdAt" IS NOT NULL AND "userId" IS NOT NULL
		AND "visibility" = 'public' AND "channelId" = ''
	PRIMARY KEY ("createdAtDate", "createdAt", "userId")
	WITH CLUSTERING ORDER BY ("createdAt" DESC)`,

	`CREATE MATERIALIZED VIEW IF NOT EXISTS score_feed AS
	SELECT * FROM note
	WHERE "createdAtDate" IS NOT NULL AND "createdAt" IS NOT NULL AND "userId" IS NOT NULL
		AND "visibility" = 'public' AND "channelId" = '' AND "score" > 0
	PRIMARY KEY ("createdAtDate", "createdAt", "userId")
	WITH CLUSTERING ORDER BY ("createdAt" DESC)`,

	`CREATE TABLE IF NOT EXISTS reaction (
	"id" text,
	"noteId" text,
	"userId" text,
	"reaction" text,
	"createdAt" timestamp,
	PRIMARY KEY ("noteId", "userId")
)`,

	`CREATE MATERIALIZED VIEW IF NOT EXISTS reaction_by_user_id AS
	SELECT * FROM reaction
	WHERE "userId" IS NOT NULL AND "noteId" IS NOT NULL AND "createdAt" IS NOT NULL
	PRIMARY KEY ("userId", "createdAt", "noteId")
	WITH CLUSTERING ORDER BY ("createdAt" DESC)`,

	`CREATE TABLE IF NOT EXISTS poll_vote (
	"noteId" text,
	"userId" text,
	"userHost" text,
	"choice" text,
	"createdAt" timestamp,
	PRIMARY KEY ("noteId", "userId")
)`,

	`CREATE TABLE IF NOT EXISTS notification (
	"targetId" text,
	"createdAtDate" timestamp,
	"createdAt" timestamp,
	"id" text,
	"notifierId" text,
	"notifierHost" text,
	"type" text,
	"entityId" text,
	"reaction" text,
	"choice" int,
	"customBody" text,
	"customHeader" text,
	"customIcon" text,
	PRIMARY KEY (("targetId", "createdAtDate"), "createdAt", "id")
) WITH CLUSTERING ORDER BY ("createdAt" DESC)`,
}
