package database

import "database/sql"

// schema is executed statement by statement at startup. CREATE TABLE IF
// NOT EXISTS keeps restarts cheap; column changes still need a manual
// migration.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		role ENUM('admin', 'assistant') NOT NULL,
		status ENUM('pending', 'active', 'rejected') NOT NULL DEFAULT 'pending',
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		full_name VARCHAR(255) NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS inventory (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		quantity INT NOT NULL DEFAULT 0,
		remaining_quantity INT NOT NULL DEFAULT 0,
		status ENUM('available', 'borrowed', 'maintenance', 'damaged', 'out_of_stock') NOT NULL DEFAULT 'available',
		` + "`condition`" + ` ENUM('good', 'fair', 'poor') NOT NULL DEFAULT 'good',
		warranty_expiry DATE NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS borrowers (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		phone VARCHAR(64) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		borrower_id BIGINT NOT NULL,
		inventory_id BIGINT NOT NULL,
		quantity INT NOT NULL,
		borrow_date DATETIME NOT NULL,
		return_date DATETIME NULL,
		status ENUM('borrowed', 'returned', 'overdue') NOT NULL DEFAULT 'borrowed',
		damaged_quantity INT NOT NULL DEFAULT 0,
		fine_amount DECIMAL(10,2) NOT NULL DEFAULT 0.00,
		damage_image_url VARCHAR(512) NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		CONSTRAINT fk_transactions_borrower FOREIGN KEY (borrower_id) REFERENCES borrowers(id),
		CONSTRAINT fk_transactions_inventory FOREIGN KEY (inventory_id) REFERENCES inventory(id)
	)`,
	`CREATE TABLE IF NOT EXISTS cart (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		borrower_id BIGINT NOT NULL,
		status ENUM('requested', 'accepted', 'rejected') NOT NULL DEFAULT 'requested',
		admin_id BIGINT NULL,
		reviewed_at DATETIME NULL,
		created_at DATETIME NOT NULL,
		CONSTRAINT fk_cart_borrower FOREIGN KEY (borrower_id) REFERENCES borrowers(id)
	)`,
	`CREATE TABLE IF NOT EXISTS cart_items (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		cart_id BIGINT NOT NULL,
		inventory_id BIGINT NOT NULL,
		quantity INT NOT NULL,
		CONSTRAINT fk_cart_items_cart FOREIGN KEY (cart_id) REFERENCES cart(id),
		CONSTRAINT fk_cart_items_inventory FOREIGN KEY (inventory_id) REFERENCES inventory(id)
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		message VARCHAR(512) NOT NULL,
		link VARCHAR(255) NULL,
		is_read TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		CONSTRAINT fk_notifications_user FOREIGN KEY (user_id) REFERENCES users(id)
	)`,
}

// EnsureSchema creates any missing tables.
func EnsureSchema(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
