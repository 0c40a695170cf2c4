package database

func GetLocationsSchema() string {
	return `
		CREATE TABLE IF NOT EXISTS locations (
			id INT PRIMARY KEY,
			city VARCHAR(255) NOT NULL,
			country VARCHAR(255) NOT NULL
		)
	`
}

func GetSourcesSchema() string {
	return `
		CREATE TABLE IF NOT EXISTS sources (
			id INT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description VARCHAR(255) NOT NULL,
			ip_address VARCHAR(45) NOT NULL,
			location_id INT NOT NULL
		)
	`
}

func GetMySQLEventsSchema() string {
	return `
		CREATE TABLE IF NOT EXISTS events (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			occurred_at DATETIME(6) NOT NULL,
			message VARCHAR(255) NOT NULL,
			severity_id INT NOT NULL,
			event_type_id INT NOT NULL,
			source_id INT NOT NULL
		)
	`
}

func GetPostgresEventsSchema() string {
	return `
		CREATE TABLE IF NOT EXISTS events (
			id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
			occurred_at TIMESTAMPTZ NOT NULL,
			message VARCHAR(255) NOT NULL,
			severity_id INT NOT NULL,
			event_type_id INT NOT NULL,
			source_id INT NOT NULL
		)
	`
}

// SQLite reuses max(rowid)+1, so an emptied table restarts at 1.
func GetSQLiteEventsSchema() string {
	return `
		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY,
			occurred_at DATETIME NOT NULL,
			message VARCHAR(255) NOT NULL,
			severity_id INT NOT NULL,
			event_type_id INT NOT NULL,
			source_id INT NOT NULL
		)
	`
}

/*
MongoDB document structure:

events: {
  _id: <int64, allocated from counters>,
  occurred_at: <date>,
  message: <string>,
  severity_id: <int>,
  event_type_id: <int>,
  source_id: <int>
}

sources:   { _id: <int>, name, description, ip_address, location_id }
locations: { _id: <int>, city, country }
counters:  { _id: "events", seq: <int64> }

*/
