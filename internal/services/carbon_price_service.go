package services

import (
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"carbon-broker/internal/cache"
	"carbon-broker/internal/models"
)

const priceCacheKey = "carbon_prices:table"

// CarbonPriceService maintains the admin-managed year -> price table and
// serves cached reads of it.
type CarbonPriceService struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewCarbonPriceService creates a new CarbonPriceService. The cache is
// injected so callers share one instance and tests can control its clock.
func NewCarbonPriceService(db *gorm.DB, priceCache *cache.Cache) *CarbonPriceService {
	return &CarbonPriceService{db: db, cache: priceCache}
}

// PriceTable returns the full year -> price mapping, served from cache when
// fresh.
func (s *CarbonPriceService) PriceTable() (map[int]decimal.Decimal, error) {
	if cached, ok := s.cache.Get(priceCacheKey); ok {
		if table, ok := cached.(map[int]decimal.Decimal); ok {
			return table, nil
		}
	}

	var prices []models.CarbonPrice
	if err := s.db.Order("year ASC").Find(&prices).Error; err != nil {
		return nil, fmt.Errorf("failed to load carbon prices: %w", err)
	}

	table := make(map[int]decimal.Decimal, len(prices))
	for _, p := range prices {
		table[p.Year] = p.Price
	}

	s.cache.Set(priceCacheKey, table)
	return table, nil
}

// PriceForYear returns the price for one year. A missing year is not an
// error; the zero price and false are returned.
func (s *CarbonPriceService) PriceForYear(year int) (decimal.Decimal, bool, error) {
	table, err := s.PriceTable()
	if err != nil {
		return decimal.Zero, false, err
	}
	price, ok := table[year]
	return price, ok, nil
}

// UpsertPrice creates or updates the price for one year and invalidates the
// cached table.
func (s *CarbonPriceService) UpsertPrice(year int, price decimal.Decimal, currency string) (*models.CarbonPrice, error) {
	if year < 2000 || year > 2200 {
		return nil, fmt.Errorf("implausible year %d", year)
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("price must not be negative")
	}
	if currency == "" {
		currency = "USD"
	}

	var record models.CarbonPrice
	result := s.db.Where("year = ?", year).First(&record)

	if result.Error == gorm.ErrRecordNotFound {
		record = models.CarbonPrice{Year: year, Price: price, Currency: currency}
		if err := s.db.Create(&record).Error; err != nil {
			return nil, fmt.Errorf("failed to create carbon price: %w", err)
		}
	} else if result.Error != nil {
		return nil, result.Error
	} else {
		if err := s.db.Model(&record).Updates(map[string]interface{}{
			"price":    price,
			"currency": currency,
		}).Error; err != nil {
			return nil, fmt.Errorf("failed to update carbon price: %w", err)
		}
		record.Price = price
		record.Currency = currency
	}

	s.cache.Invalidate("carbon_prices:")
	log.Printf("Carbon price for %d set to %s %s", year, price, currency)
	return &record, nil
}

// InitializeTable bulk-loads a price table, replacing the years it names.
// Used by the admin initialization routine.
func (s *CarbonPriceService) InitializeTable(prices map[int]decimal.Decimal, currency string) error {
	for year, price := range prices {
		if _, err := s.UpsertPrice(year, price, currency); err != nil {
			return err
		}
	}
	return nil
}
