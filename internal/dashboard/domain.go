package dashboard

// Overview is the front-page snapshot of the shop.
type Overview struct {
	TodaySales      int     `json:"todaySales"`
	TodayRevenue    float64 `json:"todayRevenue"`
	MonthSales      int     `json:"monthSales"`
	MonthRevenue    float64 `json:"monthRevenue"`
	ProductCount    int     `json:"productCount"`
	LowStockCount   int     `json:"lowStockCount"`
	OutOfStockCount int     `json:"outOfStockCount"`
	PendingPOs      int     `json:"pendingPurchaseOrders"`
	CustomerCount   int     `json:"customerCount"`
	InventoryValue  float64 `json:"inventoryValue"`
}

// TopProduct is one row of the best-sellers list.
type TopProduct struct {
	ProductID   int64   `json:"productId"`
	ProductName string  `json:"productName"`
	UnitsSold   int     `json:"unitsSold"`
	Revenue     float64 `json:"revenue"`
}

// MonthlyPoint is one month of the revenue series.
type MonthlyPoint struct {
	Month     string  `json:"month"`
	SaleCount int     `json:"saleCount"`
	Revenue   float64 `json:"revenue"`
	Tax       float64 `json:"tax"`
}
