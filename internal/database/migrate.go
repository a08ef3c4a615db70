package database

import (
	"context"
	"database/sql"
	"log"

	"golang.org/x/crypto/bcrypt"
)

// Migrate creates the users, events and bookings tables when they do not
// exist yet and seeds the default admin account.  Statements are idempotent
// so the function is safe to run on every startup.
func Migrate(ctx context.Context, db *sql.DB, bcryptCost int) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(50) NOT NULL,
			email VARCHAR(100) UNIQUE NOT NULL,
			password VARCHAR(255) NOT NULL,
			phone VARCHAR(20) NOT NULL,
			role ENUM('user', 'admin') DEFAULT 'user',
			is_active BOOLEAN DEFAULT true,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id INT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			description TEXT NOT NULL,
			date DATE NOT NULL,
			time TIME NOT NULL,
			location VARCHAR(200) NOT NULL,
			venue VARCHAR(100) NOT NULL,
			image VARCHAR(255) DEFAULT '🎭',
			ticket_price_regular DECIMAL(10,2) NOT NULL,
			ticket_price_vip DECIMAL(10,2) NOT NULL,
			available_tickets_regular INT DEFAULT 100,
			available_tickets_vip INT DEFAULT 50,
			category ENUM('music', 'sports', 'conference', 'theater', 'festival', 'other') DEFAULT 'other',
			organizer_id INT,
			is_active BOOLEAN DEFAULT true,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			FOREIGN KEY (organizer_id) REFERENCES users(id),
			CONSTRAINT chk_available_regular CHECK (available_tickets_regular >= 0),
			CONSTRAINT chk_available_vip CHECK (available_tickets_vip >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id INT AUTO_INCREMENT PRIMARY KEY,
			user_id INT NOT NULL,
			event_id INT NOT NULL,
			tickets JSON NOT NULL,
			total_amount DECIMAL(10,2) NOT NULL,
			booking_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			status ENUM('pending', 'confirmed', 'cancelled', 'completed') DEFAULT 'confirmed',
			payment_status ENUM('pending', 'paid', 'failed', 'refunded') DEFAULT 'paid',
			qr_code VARCHAR(100) UNIQUE,
			booking_reference VARCHAR(50) UNIQUE,
			notes TEXT,
			FOREIGN KEY (user_id) REFERENCES users(id),
			FOREIGN KEY (event_id) REFERENCES events(id)
		)`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return seedAdmin(ctx, db, bcryptCost)
}

// seedAdmin inserts the default administrator account when absent so a fresh
// deployment can manage events immediately.
func seedAdmin(ctx context.Context, db *sql.DB, bcryptCost int) error {
	const email = "admin@eventbook.com"
	var id uint64
	err := db.QueryRowContext(ctx, "SELECT id FROM users WHERE email = ?", email).Scan(&id)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcryptCost)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		"INSERT INTO users (name, email, password, phone, role) VALUES (?, ?, ?, ?, 'admin')",
		"System Administrator", email, string(hash), "+1234567890")
	if err != nil {
		return err
	}
	log.Printf("seeded default admin user %s", email)
	return nil
}
