package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/protokollmine/protokollmine/internal/types"
)

// Store handles SQLite persistence for protocols and speeches
type Store struct {
	db *sql.DB
}

// NewStore opens the database and ensures the schema exists
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS protocols (
		id TEXT PRIMARY KEY,
		legislative_period INTEGER,
		session_number INTEGER,
		date DATETIME,
		title TEXT,
		source TEXT,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS speeches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		protocol_id TEXT NOT NULL REFERENCES protocols(id) ON DELETE CASCADE,
		sequence_number INTEGER NOT NULL,
		speaker_name TEXT NOT NULL,
		party TEXT,
		role TEXT,
		text TEXT NOT NULL,
		summary TEXT,
		sentiment TEXT,
		topics TEXT,
		UNIQUE(protocol_id, sequence_number)
	);

	CREATE INDEX IF NOT EXISTS idx_speeches_protocol ON speeches(protocol_id);
	CREATE INDEX IF NOT EXISTS idx_protocols_date ON protocols(date);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %v", err)
	}

	return &Store{db: db}, nil
}

// UpsertProtocol inserts or overwrites a protocol row keyed by identifier
func (s *Store) UpsertProtocol(metadata types.ProtocolMetadata) error {
	var source []byte
	if metadata.Source != nil {
		var err error
		source, err = json.Marshal(metadata.Source)
		if err != nil {
			return fmt.Errorf("failed to encode protocol source: %v", err)
		}
	}

	query := `
	INSERT INTO protocols (id, legislative_period, session_number, date, title, source, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		legislative_period = excluded.legislative_period,
		session_number = excluded.session_number,
		date = excluded.date,
		title = excluded.title,
		source = excluded.source,
		updated_at = excluded.updated_at
	`

	_, err := s.db.Exec(query,
		metadata.Identifier,
		nullableInt(metadata.LegislativePeriod),
		nullableInt(metadata.SessionNumber),
		nullableTime(metadata.Date),
		nullableString(metadata.Title),
		nullableBytes(source),
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert protocol %s: %v", metadata.Identifier, err)
	}
	return nil
}

// ReplaceSpeeches swaps the stored speech set for a protocol in one
// transaction. The protocol row must already exist.
func (s *Store) ReplaceSpeeches(protocolID string, speeches []types.Speech) (int, error) {
	var exists int
	if err := s.db.QueryRow("SELECT COUNT(1) FROM protocols WHERE id = ?", protocolID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("failed to check protocol %s: %v", protocolID, err)
	}
	if exists == 0 {
		return 0, fmt.Errorf("protocol %s must exist before adding speeches", protocolID)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM speeches WHERE protocol_id = ?", protocolID); err != nil {
		return 0, fmt.Errorf("failed to clear speeches for %s: %v", protocolID, err)
	}

	insertSQL := `
	INSERT INTO speeches (protocol_id, sequence_number, speaker_name, party, role, text, summary, sentiment, topics)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, speech := range speeches {
		_, err := tx.Exec(insertSQL,
			protocolID,
			speech.SequenceNumber,
			speech.SpeakerName,
			nullableString(speech.Party),
			nullableString(speech.Role),
			speech.Text,
			nullableString(speech.Summary),
			nullableString(speech.Sentiment),
			nullableString(speech.Topics),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert speech %d for %s: %v", speech.SequenceNumber, protocolID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit speeches for %s: %v", protocolID, err)
	}
	return len(speeches), nil
}

// PendingSummaries returns speeches that have not been summarized yet
func (s *Store) PendingSummaries(limit int) ([]types.Speech, error) {
	query := `
	SELECT id, protocol_id, sequence_number, speaker_name, party, role, text, summary, sentiment, topics
	FROM speeches WHERE summary IS NULL ORDER BY id LIMIT ?
	`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending summaries: %v", err)
	}
	defer rows.Close()
	return scanSpeeches(rows)
}

// UpdateSummary stores the generated annotation for one speech
func (s *Store) UpdateSummary(speechID int64, summary string, sentiment, topics *string) error {
	result, err := s.db.Exec(
		"UPDATE speeches SET summary = ?, sentiment = ?, topics = ? WHERE id = ?",
		summary, nullableString(sentiment), nullableString(topics), speechID,
	)
	if err != nil {
		return fmt.Errorf("failed to update summary for speech %d: %v", speechID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update summary for speech %d: %v", speechID, err)
	}
	if affected == 0 {
		return fmt.Errorf("speech %d not found", speechID)
	}
	return nil
}

// SpeechesForProtocol returns the stored speeches for one protocol in order
func (s *Store) SpeechesForProtocol(protocolID string) ([]types.Speech, error) {
	query := `
	SELECT id, protocol_id, sequence_number, speaker_name, party, role, text, summary, sentiment, topics
	FROM speeches WHERE protocol_id = ? ORDER BY sequence_number
	`
	rows, err := s.db.Query(query, protocolID)
	if err != nil {
		return nil, fmt.Errorf("failed to list speeches for %s: %v", protocolID, err)
	}
	defer rows.Close()
	return scanSpeeches(rows)
}

// ListProtocols returns the latest stored protocols with their speech counts
func (s *Store) ListProtocols(limit int) ([]types.ProtocolOverview, error) {
	query := `
	SELECT p.id, p.legislative_period, p.session_number, p.date, p.title, p.updated_at, COUNT(sp.id)
	FROM protocols p
	LEFT JOIN speeches sp ON sp.protocol_id = p.id
	GROUP BY p.id, p.legislative_period, p.session_number, p.date, p.title, p.updated_at
	ORDER BY p.date IS NULL, p.date DESC, p.updated_at DESC, p.id DESC
	LIMIT ?
	`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list protocols: %v", err)
	}
	defer rows.Close()

	var overviews []types.ProtocolOverview
	for rows.Next() {
		var (
			overview types.ProtocolOverview
			period   sql.NullInt64
			session  sql.NullInt64
			date     sql.NullTime
			title    sql.NullString
		)
		if err := rows.Scan(&overview.Identifier, &period, &session, &date, &title, &overview.UpdatedAt, &overview.SpeechCount); err != nil {
			return nil, fmt.Errorf("failed to scan protocol row: %v", err)
		}
		if period.Valid {
			value := int(period.Int64)
			overview.LegislativePeriod = &value
		}
		if session.Valid {
			value := int(session.Int64)
			overview.SessionNumber = &value
		}
		if date.Valid {
			value := date.Time
			overview.Date = &value
		}
		if title.Valid {
			value := title.String
			overview.Title = &value
		}
		overviews = append(overviews, overview)
	}
	return overviews, rows.Err()
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func scanSpeeches(rows *sql.Rows) ([]types.Speech, error) {
	var speeches []types.Speech
	for rows.Next() {
		var (
			speech    types.Speech
			party     sql.NullString
			role      sql.NullString
			summary   sql.NullString
			sentiment sql.NullString
			topics    sql.NullString
		)
		err := rows.Scan(&speech.ID, &speech.ProtocolID, &speech.SequenceNumber,
			&speech.SpeakerName, &party, &role, &speech.Text, &summary, &sentiment, &topics)
		if err != nil {
			return nil, fmt.Errorf("failed to scan speech row: %v", err)
		}
		speech.Party = stringPtr(party)
		speech.Role = stringPtr(role)
		speech.Summary = stringPtr(summary)
		speech.Sentiment = stringPtr(sentiment)
		speech.Topics = stringPtr(topics)
		speeches = append(speeches, speech)
	}
	return speeches, rows.Err()
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	result := value.String
	return &result
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableBytes(value []byte) any {
	if value == nil {
		return nil
	}
	return string(value)
}
