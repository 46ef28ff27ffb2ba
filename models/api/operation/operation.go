package operationapimodels

import (
	"time"

	"github.com/pkg/errors"

	"adops-backend/models"
)

// PackageData пакет размещения внутри закупки
type PackageData struct {
	PackageID           string  `json:"package_id"`           // идентификатор пакета на стороне покупателя
	ProductID           string  `json:"product_id"`           // размещаемый продукт
	Budget              float64 `json:"budget"`               // бюджет пакета
	BudgetedImpressions int64   `json:"budgeted_impressions"` // плановые показы
}

func (p PackageData) Validate() error {
	if p.PackageID == "" {
		return errors.New("не указан идентификатор пакета")
	}
	if p.Budget <= 0 {
		return errors.New("бюджет пакета должен быть больше нуля")
	}
	return nil
}

type CreateMediaBuyRequest struct {
	BuyerRef    string        `json:"buyer_ref"`    // референс закупки на стороне покупателя
	Packages    []PackageData `json:"packages"`     // пакеты размещения
	FlightStart time.Time     `json:"flight_start"` // начало размещения
	FlightEnd   time.Time     `json:"flight_end"`   // окончание размещения
	Currency    string        `json:"currency"`     // валюта бюджета
}

func (r CreateMediaBuyRequest) Validate() error {
	if r.BuyerRef == "" {
		return errors.New("не указан референс закупки")
	}
	if len(r.Packages) == 0 {
		return errors.New("не указаны пакеты размещения")
	}
	for _, p := range r.Packages {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	if r.FlightStart.IsZero() || r.FlightEnd.IsZero() {
		return errors.New("не указан период размещения")
	}
	if !r.FlightEnd.After(r.FlightStart) {
		return errors.New("окончание размещения должно быть позже начала")
	}
	return nil
}

func (r CreateMediaBuyRequest) TotalBudget() float64 {
	var total float64
	for _, p := range r.Packages {
		total += p.Budget
	}
	return total
}

func (r CreateMediaBuyRequest) TotalImpressions() int64 {
	var total int64
	for _, p := range r.Packages {
		total += p.BudgetedImpressions
	}
	return total
}

type UpdateMediaBuyRequest struct {
	MediaBuyID string                      `json:"media_buy_id"` // идентификатор закупки
	Action     models.UpdateMediaBuyAction `json:"action"`       // действие над закупкой/пакетом
	PackageID  string                      `json:"package_id"`   // для действий уровня пакета
	Budget     *float64                    `json:"budget"`       // новый бюджет, для update_package_budget
}

func (r UpdateMediaBuyRequest) Validate() error {
	if r.MediaBuyID == "" {
		return errors.New("не указан идентификатор закупки")
	}
	if err := r.Action.Validate(); err != nil {
		return err
	}
	switch r.Action {
	case models.UpdateActionPausePackage, models.UpdateActionResumePackage:
		if r.PackageID == "" {
			return errors.New("не указан идентификатор пакета")
		}
	case models.UpdateActionUpdatePackageBudget:
		if r.PackageID == "" {
			return errors.New("не указан идентификатор пакета")
		}
		if r.Budget == nil || *r.Budget <= 0 {
			return errors.New("новый бюджет должен быть больше нуля")
		}
	}
	return nil
}

// CreativeData креатив для привязки к закупке
type CreativeData struct {
	CreativeID string `json:"creative_id"` // идентификатор креатива
	Format     string `json:"format"`      // формат (banner/video/native)
	URL        string `json:"url"`         // ссылка на ресурс креатива
}

func (c CreativeData) Validate() error {
	if c.CreativeID == "" {
		return errors.New("не указан идентификатор креатива")
	}
	if c.URL == "" {
		return errors.New("не указана ссылка на креатив")
	}
	return nil
}

type AddCreativeAssetsRequest struct {
	MediaBuyID string         `json:"media_buy_id"` // идентификатор закупки
	Creatives  []CreativeData `json:"creatives"`    // креативы на модерацию
}

func (r AddCreativeAssetsRequest) Validate() error {
	if r.MediaBuyID == "" {
		return errors.New("не указан идентификатор закупки")
	}
	if len(r.Creatives) == 0 {
		return errors.New("не указаны креативы")
	}
	for _, c := range r.Creatives {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

type CheckStatusRequest struct {
	MediaBuyID string `json:"media_buy_id"` // идентификатор закупки
}

func (r CheckStatusRequest) Validate() error {
	if r.MediaBuyID == "" {
		return errors.New("не указан идентификатор закупки")
	}
	return nil
}

// OperationResult синхронный ответ операции: либо результат, либо ссылка на отложенную задачу
type OperationResult struct {
	Status     models.TaskStatus `json:"status"`                // pending_approval для отложенной операции, иначе исход немедленного пути
	TaskID     string            `json:"task_id,omitempty"`     // задача, созданная перехватчиком
	MediaBuyID string            `json:"media_buy_id,omitempty"`
	Detail     string            `json:"detail,omitempty"` // человекочитаемое описание
	Data       any               `json:"data,omitempty"`   // результат адаптера при немедленном выполнении
}
