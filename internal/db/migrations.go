package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'pengaduan_status_enum') THEN
			CREATE TYPE pengaduan_status_enum AS ENUM ('masuk', 'terverifikasi', 'terdisposisi', 'tindak_lanjut', 'selesai');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS bidang (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		nama_bidang VARCHAR(255) NOT NULL,
		kode_bidang VARCHAR(32) NOT NULL UNIQUE,
		deskripsi TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS kategori_pengaduan (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		nama_kategori VARCHAR(255) NOT NULL UNIQUE,
		deskripsi TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		nama VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role VARCHAR(32) NOT NULL,
		bidang_id UUID REFERENCES bidang(id) ON DELETE RESTRICT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_users_bidang_id ON users (bidang_id);`,
	`CREATE TABLE IF NOT EXISTS pengaduan (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		kode_pengaduan VARCHAR(32) NOT NULL UNIQUE,
		kategori_id UUID NOT NULL REFERENCES kategori_pengaduan(id) ON DELETE RESTRICT,
		judul_pengaduan VARCHAR(255) NOT NULL,
		isi_pengaduan TEXT NOT NULL,
		lokasi_kejadian TEXT,
		tanggal_kejadian DATE,
		nama_pelapor VARCHAR(255) NOT NULL,
		email_pelapor VARCHAR(255),
		telepon_pelapor VARCHAR(32),
		anonim BOOLEAN NOT NULL DEFAULT FALSE,
		bukti_file TEXT,
		status pengaduan_status_enum NOT NULL DEFAULT 'masuk',
		bidang_id UUID REFERENCES bidang(id) ON DELETE RESTRICT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT chk_pengaduan_anonim_redacted CHECK (NOT anonim OR (nama_pelapor = 'Anonim' AND COALESCE(email_pelapor, '') = ''))
	);`,
	`CREATE INDEX IF NOT EXISTS idx_pengaduan_status ON pengaduan (status);`,
	`CREATE INDEX IF NOT EXISTS idx_pengaduan_bidang_id ON pengaduan (bidang_id);`,
	`CREATE INDEX IF NOT EXISTS idx_pengaduan_created_at ON pengaduan (created_at);`,
	`CREATE TABLE IF NOT EXISTS pengaduan_status (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		pengaduan_id UUID NOT NULL REFERENCES pengaduan(id) ON DELETE CASCADE,
		status pengaduan_status_enum NOT NULL,
		keterangan TEXT,
		user_id UUID REFERENCES users(id) ON DELETE SET NULL,
		petugas VARCHAR(255),
		tanggapan TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		seq BIGSERIAL NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_pengaduan_status_pengaduan_id ON pengaduan_status (pengaduan_id, created_at, seq);`,
	`CREATE OR REPLACE FUNCTION pengaduan_status_append_only()
	RETURNS TRIGGER AS $$
	BEGIN
		RAISE EXCEPTION 'pengaduan_status is append-only';
	END;
	$$ LANGUAGE plpgsql;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_pengaduan_status_append_only') THEN
			CREATE TRIGGER trg_pengaduan_status_append_only
				BEFORE UPDATE ON pengaduan_status
				FOR EACH ROW
				EXECUTE PROCEDURE pengaduan_status_append_only();
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS disposisi (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		pengaduan_id UUID NOT NULL REFERENCES pengaduan(id) ON DELETE CASCADE,
		dari_bidang_id UUID REFERENCES bidang(id) ON DELETE SET NULL,
		ke_bidang_id UUID NOT NULL REFERENCES bidang(id) ON DELETE RESTRICT,
		keterangan TEXT NOT NULL,
		user_id UUID REFERENCES users(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_disposisi_pengaduan_id ON disposisi (pengaduan_id, created_at);`,
	`CREATE TABLE IF NOT EXISTS ticket_sequences (
		period VARCHAR(6) PRIMARY KEY,
		last_value BIGINT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS notification_outbox (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		kind VARCHAR(16) NOT NULL,
		pengaduan_id UUID REFERENCES pengaduan(id) ON DELETE SET NULL,
		recipient VARCHAR(255),
		subject TEXT,
		payload JSONB NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'pending',
		attempts INT NOT NULL DEFAULT 0,
		last_error TEXT,
		next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		claimed_at TIMESTAMPTZ,
		sent_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_notification_outbox_due ON notification_outbox (status, next_attempt_at);`,
	`CREATE OR REPLACE FUNCTION set_row_updated_at()
	RETURNS TRIGGER AS $$
	BEGIN
		NEW.updated_at = NOW();
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_pengaduan_updated_at') THEN
			CREATE TRIGGER trg_pengaduan_updated_at
				BEFORE UPDATE ON pengaduan
				FOR EACH ROW
				EXECUTE PROCEDURE set_row_updated_at();
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_bidang_updated_at') THEN
			CREATE TRIGGER trg_bidang_updated_at
				BEFORE UPDATE ON bidang
				FOR EACH ROW
				EXECUTE PROCEDURE set_row_updated_at();
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_users_updated_at') THEN
			CREATE TRIGGER trg_users_updated_at
				BEFORE UPDATE ON users
				FOR EACH ROW
				EXECUTE PROCEDURE set_row_updated_at();
		END IF;
	END
	$$;`,
	`INSERT INTO kategori_pengaduan (nama_kategori, deskripsi) VALUES
		('Upah dan Pesangon', 'Keterlambatan, pemotongan, atau tidak dibayarkannya upah dan pesangon'),
		('Pemutusan Hubungan Kerja', 'PHK sepihak atau tanpa prosedur yang sah'),
		('Keselamatan dan Kesehatan Kerja', 'Kondisi kerja berbahaya atau kecelakaan kerja'),
		('Jaminan Sosial', 'Pekerja tidak didaftarkan BPJS Ketenagakerjaan atau Kesehatan'),
		('Lainnya', 'Permasalahan ketenagakerjaan lainnya')
	ON CONFLICT (nama_kategori) DO NOTHING;`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
