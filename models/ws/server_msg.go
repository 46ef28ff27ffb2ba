package wsmodels

type ServerMessage struct {
	ToUserID   string `json:"-"`
	Time       string `json:"time"`                   // время события
	Code       string `json:"code"`                   // код события
	Msg        string `json:"msg"`                    // текст события
	TaskID     string `json:"task_id,omitempty"`      // связанная задача
	MediaBuyID string `json:"media_buy_id,omitempty"` // связанная закупка
}
