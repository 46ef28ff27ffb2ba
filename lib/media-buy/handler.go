package mediabuyhandler

import (
	"github.com/pkg/errors"

	"adops-backend/db"
	mediabuystore "adops-backend/lib/media-buy/store"
	"adops-backend/models"
	mediabuyapimodels "adops-backend/models/api/mediabuy"
	dbmodels "adops-backend/models/db"
)

var ErrMediaBuyNotFound = errors.New("закупка не найдена")

type Provider interface {
	GetByID(tenantID, id string) (*mediabuyapimodels.MediaBuyView, error)
	List(tenantID string, filter mediabuyapimodels.MediaBuyFilter) (list []mediabuyapimodels.MediaBuyView, rowCount int64, err error)
	// ManualCreate регистрация закупки, заведённой на площадке вручную, минуя адаптер
	ManualCreate(tenantID string, data mediabuyapimodels.ManualCreateRequest) (*mediabuyapimodels.MediaBuyView, error)
}

var Instance Provider

func NewHandler() {
	Instance = impl{
		store: mediabuystore.NewInstance(db.DB),
	}
}

type impl struct {
	store mediabuystore.Provider
}

func (i impl) GetByID(tenantID, id string) (*mediabuyapimodels.MediaBuyView, error) {
	rec, err := i.store.GetByID(tenantID, id)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка получения закупки")
	}
	if rec == nil {
		return nil, ErrMediaBuyNotFound
	}
	view := mediabuyapimodels.MediaBuyConvert(*rec)
	return &view, nil
}

func (i impl) List(tenantID string, filter mediabuyapimodels.MediaBuyFilter) (list []mediabuyapimodels.MediaBuyView, rowCount int64, err error) {
	if err = filter.Validate(); err != nil {
		return nil, 0, err
	}
	rowCount, err = i.store.ListCount(tenantID, filter)
	if err != nil {
		return nil, 0, err
	}
	recs, err := i.store.List(tenantID, filter)
	if err != nil {
		return nil, 0, err
	}
	list = make([]mediabuyapimodels.MediaBuyView, 0, len(recs))
	for _, rec := range recs {
		list = append(list, mediabuyapimodels.MediaBuyConvert(rec))
	}
	return list, rowCount, nil
}

func (i impl) ManualCreate(tenantID string, data mediabuyapimodels.ManualCreateRequest) (*mediabuyapimodels.MediaBuyView, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	rec := dbmodels.MediaBuy{
		BaseTenantModel: dbmodels.BaseTenantModel{
			TenantID: tenantID,
		},
		PrincipalID: data.PrincipalID,
		Platform:    data.Platform,
		Status:      models.MediaBuyStatusPendingManual,
		BuyerRef:    data.BuyerRef,
		FlightStart: data.FlightStart,
		FlightEnd:   data.FlightEnd,
		TotalBudget: data.TotalBudget,
		Currency:    data.Currency,
	}
	id, err := i.store.Create(rec)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка сохранения закупки")
	}
	return i.GetByID(tenantID, id)
}
