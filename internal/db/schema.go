package db

// SchemaSQL contains the run registry schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- RUN TABLE (matching-run registry)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS run SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS tag ON run TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS sd_range ON run TYPE string;
    DEFINE FIELD IF NOT EXISTS graph_type ON run TYPE string;
    DEFINE FIELD IF NOT EXISTS signed ON run TYPE bool DEFAULT false;
    DEFINE FIELD IF NOT EXISTS status ON run TYPE string DEFAULT "running"
        ASSERT $value IN ["running", "completed", "failed"];
    DEFINE FIELD IF NOT EXISTS artifact_url ON run TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS graph_path ON run TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS corr_path ON run TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS pairs_checked ON run TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS pairs_explained ON run TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS error ON run TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created ON run TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS finished ON run TYPE option<datetime>;

    DEFINE INDEX IF NOT EXISTS run_status ON run FIELDS status;
    DEFINE INDEX IF NOT EXISTS run_sd_range ON run FIELDS sd_range;
`
