package handlers

import (
	"github.com/jmoiron/sqlx"

	"sweetshop/internal/config"
	"sweetshop/internal/realtime"
	"sweetshop/internal/repos"
	"sweetshop/internal/services"
)

type Deps struct {
	ItemHandler  *ItemHandler
	OrderHandler *OrderHandler
	WSHandler    *WSHandler
}

func NewDeps(db *sqlx.DB, hub *realtime.Hub, cfg config.Config) *Deps {
	itemRepo := repos.NewItemRepo(db)
	orderRepo := repos.NewOrderRepo(db)

	resSvc := services.NewReservationService(itemRepo, cfg.StoreTimeout)
	purchaseSvc := services.NewPurchaseService(resSvc, orderRepo, hub, cfg.StoreTimeout)
	catalogSvc := services.NewCatalogService(itemRepo, hub, cfg.StoreTimeout)

	return &Deps{
		ItemHandler:  &ItemHandler{Catalog: catalogSvc},
		OrderHandler: &OrderHandler{Purchase: purchaseSvc, Repo: orderRepo},
		WSHandler:    &WSHandler{Hub: hub, SendBuffer: cfg.WSSendBuffer},
	}
}
