package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"autoservice/internal/auth"
	"autoservice/internal/domain"
)

// SeedDemo заполняет пустое хранилище демонстрационными данными.
// Если пользователи уже есть, ничего не делает.
func SeedDemo(ctx context.Context, users *UserService, catalog *CatalogService, products *ProductService, log *slog.Logger) error {
	sys := auth.System()
	existing, err := users.List(ctx, sys, "")
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	if len(existing) > 0 {
		log.InfoContext(ctx, "demo seed skipped", "users", len(existing))
		return nil
	}

	for _, u := range []domain.User{
		{ID: "admin", Email: "admin@autoservice.local", FirstName: "Admin", Role: domain.RoleAdmin},
		{ID: "master-ivan", Email: "ivan@autoservice.local", FirstName: "Ivan", LastName: "Petrov", Phone: "+7 900 000-00-01", Role: domain.RoleMaster},
		{ID: "master-oleg", Email: "oleg@autoservice.local", FirstName: "Oleg", LastName: "Sidorov", Phone: "+7 900 000-00-02", Role: domain.RoleMaster},
		{ID: "client-anna", Email: "anna@example.com", FirstName: "Anna", LastName: "Smirnova", Phone: "+7 900 000-00-03", Role: domain.RoleClient},
	} {
		if _, err := users.Create(ctx, sys, u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.Email, err)
		}
	}

	for _, s := range []domain.Service{
		{Name: "Oil change", Price: decimal.RequireFromString("1500"), DurationMinutes: 60, Category: "MAINTENANCE", IsActive: true},
		{Name: "Brake inspection", Price: decimal.RequireFromString("2000"), DurationMinutes: 60, Category: "BRAKES", IsActive: true},
		{Name: "Wheel alignment", Price: decimal.RequireFromString("2500"), DurationMinutes: 60, Category: "SUSPENSION", IsActive: true},
	} {
		if _, err := catalog.Create(ctx, sys, s); err != nil {
			return fmt.Errorf("seed service %s: %w", s.Name, err)
		}
	}

	for _, p := range []domain.Product{
		{Name: "Oil filter", PartNumber: "OF-100", Brand: "Mann", Category: domain.CategoryFilters, Price: decimal.RequireFromString("450.00"), Quantity: 40, IsActive: true},
		{Name: "Brake pads, front", PartNumber: "BP-220", Brand: "Brembo", Category: domain.CategoryBrakeParts, Price: decimal.RequireFromString("3200.00"), Quantity: 8, IsActive: true},
		{Name: "Engine oil 5W-30, 4L", PartNumber: "EO-530", Brand: "Castrol", Category: domain.CategoryOilsFluids, Price: decimal.RequireFromString("2900.00"), Quantity: 25, IsActive: true},
		{Name: "Spark plug", PartNumber: "SP-016", Brand: "NGK", Category: domain.CategoryEngineParts, Price: decimal.RequireFromString("390.00"), Quantity: 0, IsActive: true},
	} {
		if _, err := products.Create(ctx, sys, p); err != nil {
			return fmt.Errorf("seed product %s: %w", p.PartNumber, err)
		}
	}
	log.InfoContext(ctx, "demo data seeded")
	return nil
}
