package repository

import "github.com/rafaelreis-se/gym-nfse/pkg/database"

// Migrations is the invoice emission schema. The students table belongs to the
// surrounding gym application; it is created here only when absent so the
// subsystem can run standalone.
var Migrations = []database.Migration{
	{
		Version: 1,
		Name:    "create_invoices",
		SQL: `
			CREATE TABLE IF NOT EXISTS invoices (
				id TEXT PRIMARY KEY,
				number INTEGER NOT NULL,
				series TEXT NOT NULL,
				status TEXT NOT NULL,
				service_description TEXT NOT NULL,
				service_value TEXT NOT NULL,
				provider_tax_id TEXT NOT NULL,
				recipient_name TEXT NOT NULL,
				recipient_contact TEXT NOT NULL DEFAULT '',
				emission_date DATETIME NOT NULL,
				protocol TEXT,
				remote_number TEXT,
				remote_code TEXT,
				verification_code TEXT,
				document_link TEXT,
				remote_date DATETIME,
				observations TEXT NOT NULL DEFAULT '',
				linked_entity_id TEXT,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				UNIQUE (number, series)
			);
			CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices (status);
			CREATE INDEX IF NOT EXISTS idx_invoices_emission_date ON invoices (emission_date);
		`,
	},
	{
		Version: 2,
		Name:    "create_students_if_absent",
		SQL: `
			CREATE TABLE IF NOT EXISTS students (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				email TEXT NOT NULL DEFAULT ''
			);
		`,
	},
}
