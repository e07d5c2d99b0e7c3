package domain

type Medicine struct {
	ID       string  `db:"id" json:"id"`
	Name     string  `db:"name" json:"name"`
	Category string  `db:"category" json:"category"`
	Price    float64 `db:"price" json:"price"`
	Stock    int64   `db:"stock" json:"stock"`
	Image    string  `db:"image" json:"image"`
}
