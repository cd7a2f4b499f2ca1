package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [project-name]",
		Short: "Initialize a new telemart project",
		Long:  "Creates project scaffolding with a starter Telegram mart: one staging view over raw.telegram_media plus channel and date dimensions and two fact tables.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(args[0])
		},
	}
}

func runInit(projectName string) error {
	bold := color.New(color.Bold)
	_, _ = bold.Printf("Initializing telemart project: %s\n", projectName)

	for _, dir := range []string{"models/staging", "models/marts"} {
		if err := os.MkdirAll(filepath.Join(projectName, dir), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	files := []struct {
		name    string
		content string
	}{
		{"telemart.yaml", starterConfig},
		{".env.example", starterEnv},
		{".gitignore", ".env\n*.duckdb\n"},
		{"models/staging/stg_telegram_messages.sql", stagingSQL},
		{"models/staging/schema.yml", stagingSchema},
		{"models/marts/dim_channels.sql", dimChannelsSQL},
		{"models/marts/dim_dates.sql", dimDatesSQL},
		{"models/marts/fct_messages.sql", fctMessagesSQL},
		{"models/marts/fct_image_detections.sql", fctImageDetectionsSQL},
		{"models/marts/schema.yml", martsSchema},
	}
	for _, f := range files {
		path := filepath.Join(projectName, f.name)
		if err := os.WriteFile(path, []byte(f.content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", f.name, err)
		}
		fmt.Printf("  created %s\n", f.name)
	}

	fmt.Println()
	color.Green("Project %s initialized.", projectName)
	fmt.Println("\nNext steps:")
	fmt.Printf("  cd %s\n", projectName)
	fmt.Println("  cp .env.example .env   # fill in warehouse credentials")
	fmt.Println("  telemart compile       # inspect rendered SQL")
	fmt.Println("  telemart build         # materialize the mart")
	return nil
}

const starterConfig = `target: postgres

postgres:
  host: ${POSTGRES_HOST}
  port: 5432
  database: ${POSTGRES_DB}
  user: ${POSTGRES_USER}
  password: ${POSTGRES_PASSWORD}
  schema: telegram_schema

# Uncomment for local development against DuckDB:
# target: duckdb
# duckdb:
#   path: telemart.duckdb
#   schema: main

modelDirs:
  - models/staging
  - models/marts

build:
  concurrency: 4
  timeout: 10m

server:
  addr: ":3000"

alerts:
  - type: console
`

const starterEnv = `POSTGRES_HOST=localhost
POSTGRES_DB=telegram_db
POSTGRES_USER=postgres
POSTGRES_PASSWORD=changeme
`

const stagingSQL = `SELECT
    MD5(channel_username || '-' || (media_data ->> 'message_id')) AS message_uuid,
    channel_username,
    media_date,
    (media_data ->> 'message_id')::INT AS message_id,
    (media_data ->> 'media_id')::BIGINT AS media_id,
    media_data ->> 'media_type' AS media_type,
    media_data ->> 'file_path' AS file_path,
    (media_data ->> 'access_hash')::BIGINT AS access_hash,
    (media_data ->> 'download_success')::BOOLEAN AS download_success,
    (media_data ->> 'media_type') = 'photo' AS has_image,
    loaded_at
FROM {{ source "raw" "telegram_media" }}
`

const stagingSchema = `models:
  - name: stg_telegram_messages
    description: One normalized row per raw Telegram message, with the JSON payload flattened into typed columns.
    materialization: view
    checks:
      - type: not_null
        column: message_uuid
      - type: unique
        column: message_uuid
      - type: not_null
        column: channel_username
`

const dimChannelsSQL = `SELECT DISTINCT
    channel_username,
    MD5(channel_username) AS channel_id
FROM {{ ref "stg_telegram_messages" }}
`

const dimDatesSQL = `WITH bounds AS (
    SELECT
        MIN(media_date::DATE) AS min_date,
        MAX(media_date::DATE) AS max_date
    FROM {{ ref "stg_telegram_messages" }}
),

observed AS (
    SELECT min_date, max_date
    FROM bounds
    WHERE min_date IS NOT NULL
),

spine AS (
    SELECT s.d::DATE AS date
    FROM observed,
         GENERATE_SERIES(observed.min_date, observed.max_date, INTERVAL '1 day') AS s(d)
)

SELECT
    date,
    EXTRACT(DAY FROM date)::INT AS day,
    EXTRACT(MONTH FROM date)::INT AS month,
    EXTRACT(YEAR FROM date)::INT AS year,
    CASE EXTRACT(DOW FROM date)::INT
        WHEN 0 THEN 'Sunday'
        WHEN 1 THEN 'Monday'
        WHEN 2 THEN 'Tuesday'
        WHEN 3 THEN 'Wednesday'
        WHEN 4 THEN 'Thursday'
        WHEN 5 THEN 'Friday'
        ELSE 'Saturday'
    END AS weekday
FROM spine
`

const fctMessagesSQL = `SELECT
    s.message_id,
    c.channel_id,
    d.date AS media_date,
    s.has_image
FROM {{ ref "stg_telegram_messages" }} s
LEFT JOIN {{ ref "dim_channels" }} c
    ON s.channel_username = c.channel_username
LEFT JOIN {{ ref "dim_dates" }} d
    ON s.media_date::DATE = d.date
`

const fctImageDetectionsSQL = `SELECT
    s.message_id,
    det.detected_object_class,
    det.confidence_score
FROM {{ ref "stg_telegram_messages" }} s
INNER JOIN {{ source "raw" "image_detections" }} det
    ON s.file_path = det.file_path
`

const martsSchema = `models:
  - name: dim_channels
    description: One row per distinct channel with a deterministic surrogate key.
    materialization: table
    checks:
      - type: unique
        column: channel_username
      - type: not_null
        column: channel_id

  - name: dim_dates
    description: Contiguous calendar spine covering the observed message date range.
    materialization: table
    checks:
      - type: unique
        column: date
      - type: date_spine
        column: date

  - name: fct_messages
    description: One fact row per staged message with channel and date keys.
    materialization: table
    checks:
      - type: not_null
        column: message_id
      - type: unique
        column: message_id
      - type: row_count_match
        config:
          model: stg_telegram_messages

  - name: fct_image_detections
    description: One fact row per message with a confirmed object detection.
    materialization: table
    checks:
      - type: not_null
        column: message_id
      - type: not_null
        column: detected_object_class
      - type: expression
        config:
          expression: confidence_score BETWEEN 0 AND 1
      - type: row_count_lte
        config:
          model: stg_telegram_messages
`
