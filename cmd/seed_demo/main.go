package main

import (
	"context"
	"fmt"
	"log"

	"github.com/palletor/ucpwms/internal/config"
	"github.com/palletor/ucpwms/internal/database"
	"github.com/palletor/ucpwms/internal/models"
	"github.com/palletor/ucpwms/internal/services/packaging"
	"github.com/palletor/ucpwms/internal/services/ucp"
)

func main() {
	fmt.Println("🌱 ucpWMS Demo Data Seeder")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	fmt.Println("✅ Connected to database")

	fmt.Println("🔨 Running database migrations...")
	err = db.AutoMigrate(
		&models.Product{},
		&models.PackagingType{},
		&models.Pallet{},
		&models.Position{},
		&models.Ucp{},
		&models.UcpItem{},
		&models.UcpHistory{},
		&models.UcpSequence{},
	)
	if err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	fmt.Println("✅ Migrations complete")

	var productCount int64
	db.Model(&models.Product{}).Count(&productCount)
	if productCount > 0 {
		fmt.Printf("⚠️  Database already has %d products. Clear it first? (y/N): ", productCount)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("❌ Aborted. Database not modified.")
			return
		}
		fmt.Println("🗑️  Clearing existing data...")
		db.Exec("TRUNCATE TABLE ucp_histories CASCADE")
		db.Exec("TRUNCATE TABLE ucp_items CASCADE")
		db.Exec("TRUNCATE TABLE ucps CASCADE")
		db.Exec("TRUNCATE TABLE ucp_sequences CASCADE")
		db.Exec("TRUNCATE TABLE packaging_types CASCADE")
		db.Exec("TRUNCATE TABLE products CASCADE")
		db.Exec("TRUNCATE TABLE pallets CASCADE")
		db.Exec("TRUNCATE TABLE positions CASCADE")
		fmt.Println("✅ Data cleared")
	}

	ctx := context.Background()

	fmt.Println("🧱 Creating pallets and positions...")
	pbr := models.Pallet{Name: "PBR 100x120", WidthCm: 100, LengthCm: 120, MaxHeightCm: 180, MaxWeightKg: 1500}
	euro := models.Pallet{Name: "EUR 80x120", WidthCm: 80, LengthCm: 120, MaxHeightCm: 180, MaxWeightKg: 1200}
	db.Create(&pbr)
	db.Create(&euro)

	positions := []models.Position{
		{Code: "A-01-01", Name: "Aisle A, rack 1, slot 1"},
		{Code: "A-01-02", Name: "Aisle A, rack 1, slot 2"},
		{Code: "B-02-01", Name: "Aisle B, rack 2, slot 1"},
	}
	for i := range positions {
		db.Create(&positions[i])
	}

	fmt.Println("📦 Creating products with packaging hierarchies...")
	packagingSvc := packaging.NewService(db)
	ucpSvc := ucp.NewService(db, cfg.UcpPrefix, nil)

	soda := models.Product{
		SKU: "SODA-350", Name: "Soda can 350ml", Category: "beverages",
		WeightKg: 0.38, LengthCm: 6.6, WidthCm: 6.6, HeightCm: 12.2,
		TemperatureClass: models.TempAmbient,
	}
	rice := models.Product{
		SKU: "RICE-5KG", Name: "Rice bag 5kg", Category: "grocery",
		WeightKg: 5.0, LengthCm: 40, WidthCm: 25, HeightCm: 10,
		TemperatureClass: models.TempAmbient,
	}
	db.Create(&soda)
	db.Create(&rice)

	// Soda: pallet load (root) > case 24 > pack 6 > unit
	sodaRoot, err := packagingSvc.AddPackagingType(ctx, packaging.AddPackagingTypeRequest{
		ProductID: soda.ID, Name: "Pallet load", BaseUnitQuantity: 1728,
	})
	must(err)
	sodaCase, err := packagingSvc.AddPackagingType(ctx, packaging.AddPackagingTypeRequest{
		ProductID: soda.ID, Name: "Case 24", BaseUnitQuantity: 24, ParentID: &sodaRoot.ID,
	})
	must(err)
	_, err = packagingSvc.AddPackagingType(ctx, packaging.AddPackagingTypeRequest{
		ProductID: soda.ID, Name: "Pack 6", BaseUnitQuantity: 6, ParentID: &sodaCase.ID,
	})
	must(err)
	sodaUnit, err := packagingSvc.AddPackagingType(ctx, packaging.AddPackagingTypeRequest{
		ProductID: soda.ID, Name: "Can", BaseUnitQuantity: 1, IsBaseUnit: true, ParentID: &sodaCase.ID,
	})
	must(err)

	// Rice: bale (root) > unit
	riceRoot, err := packagingSvc.AddPackagingType(ctx, packaging.AddPackagingTypeRequest{
		ProductID: rice.ID, Name: "Bale 8", BaseUnitQuantity: 8,
	})
	must(err)
	_, err = packagingSvc.AddPackagingType(ctx, packaging.AddPackagingTypeRequest{
		ProductID: rice.ID, Name: "Bag", BaseUnitQuantity: 1, IsBaseUnit: true, ParentID: &riceRoot.ID,
	})
	must(err)

	fmt.Println("🏗️  Creating demo Ucps...")
	ucpA, err := ucpSvc.Create(ctx, ucp.CreateRequest{
		PalletID: &pbr.ID, PositionID: &positions[0].ID,
		Observations: "Demo load A", CreatedBy: "seeder",
	})
	must(err)
	ucpB, err := ucpSvc.Create(ctx, ucp.CreateRequest{
		PalletID: &euro.ID, PositionID: &positions[1].ID,
		Observations: "Demo load B", CreatedBy: "seeder",
	})
	must(err)

	_, err = ucpSvc.AddItem(ctx, ucp.AddItemRequest{
		UcpID: ucpA.ID, ProductID: soda.ID, Quantity: 20,
		PackagingTypeID: &sodaCase.ID, Lot: "L2401", AddedBy: "seeder",
	})
	must(err)
	_, err = ucpSvc.AddItem(ctx, ucp.AddItemRequest{
		UcpID: ucpB.ID, ProductID: soda.ID, Quantity: 150,
		PackagingTypeID: &sodaUnit.ID, Lot: "L2402", AddedBy: "seeder",
	})
	must(err)
	_, err = ucpSvc.AddItem(ctx, ucp.AddItemRequest{
		UcpID: ucpB.ID, ProductID: rice.ID, Quantity: 64, Lot: "R101", AddedBy: "seeder",
	})
	must(err)

	fmt.Println()
	fmt.Printf("✅ Seeded: 2 pallets, %d positions, 2 products, 2 ucps (%s, %s)\n",
		len(positions), ucpA.Code, ucpB.Code)
}

func must(err error) {
	if err != nil {
		log.Fatalf("❌ Seed failed: %v", err)
	}
}
