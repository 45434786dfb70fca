package cfgdb

// TableName is the configuration store table holding saved configs.
const TableName = "config"

// KindStartup is the only row kind accepted for writes.
const KindStartup = "startup"

// Schema creates the config table. There is deliberately no unique key on
// type; callers look up before writing.
const Schema = `
CREATE TABLE IF NOT EXISTS config (
    uuid     TEXT PRIMARY KEY,
    type     TEXT NOT NULL,
    name     TEXT,
    writer   TEXT,
    date     TEXT,
    config   TEXT,
    hardware TEXT
);
`
