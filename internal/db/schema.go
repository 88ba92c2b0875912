package db

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- DOCUMENT TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS document SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS collection ON document TYPE string;
    DEFINE FIELD IF NOT EXISTS content ON document TYPE string;
    DEFINE FIELD IF NOT EXISTS meta ON document TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS embedding ON document TYPE option<array<float>>;
    DEFINE FIELD IF NOT EXISTS created ON document TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS document_collection ON document FIELDS collection;
    DEFINE INDEX IF NOT EXISTS document_embedding ON document FIELDS embedding HNSW DIMENSION 384 DIST COSINE TYPE F32;

    -- ==========================================================================
    -- TASK TABLE (persisted background task state)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS task SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS task_type ON task TYPE string;
    DEFINE FIELD IF NOT EXISTS status ON task TYPE string;
    DEFINE FIELD IF NOT EXISTS progress ON task TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS files ON task TYPE option<array<object>> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS params ON task TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS result ON task TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS error ON task TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON task TYPE datetime;
    DEFINE FIELD IF NOT EXISTS started_at ON task TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS completed_at ON task TYPE option<datetime>;

    DEFINE INDEX IF NOT EXISTS task_status ON task FIELDS status;
    DEFINE INDEX IF NOT EXISTS task_created ON task FIELDS created_at;
`
