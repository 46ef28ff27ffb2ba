package connectionhub

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
	log "github.com/sirupsen/logrus"

	"adops-backend/db"
	"adops-backend/lib/utils/lock"
	pushdatastore "adops-backend/lib/ws/push-store"
	"adops-backend/models"
	dbmodels "adops-backend/models/db"
	wsmodels "adops-backend/models/ws"
)

type Provider interface {
	AddClient(tenantID, userID string, conn *websocket.Conn)
	DeleteClient(userID string)
	// SendToTenant рассылает событие подключённым ревьюерам тенанта,
	// для отключённых событие сохраняется и отдаётся при переподключении
	SendToTenant(tenantID string, msg wsmodels.ServerMessage)
	SendClose(userID string)
	IsConnected(userID string) bool
}

var Instance Provider

func Init() {
	Instance = &impl{
		clients: map[string]clientSession{},
		tenants: map[string]string{},
		store:   pushdatastore.NewInstance(db.DB),
	}
}

type impl struct {
	mu      sync.RWMutex
	clients map[string]clientSession //map[userID]
	tenants map[string]string        //map[userID]tenantID, запоминаем и отключившихся
	store   pushdatastore.Provider
}

func (i *impl) DeleteClient(userID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	sess, ok := i.clients[userID]
	if !ok {
		return
	}
	delete(i.clients, userID)
	sess.stop()
	close(sess.sendCh)
}

func (i *impl) AddClient(tenantID, userID string, conn *websocket.Conn) {
	i.mu.Lock()
	oldSess, ok := i.clients[userID]
	if ok {
		oldSess.stop()
	}
	i.clients[userID] = newSession(conn)
	i.tenants[userID] = tenantID
	i.mu.Unlock()
	go i.sendDelayedMessages(userID)
}

func (i *impl) SendToTenant(tenantID string, msg wsmodels.ServerMessage) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	for userID, userTenant := range i.tenants {
		if userTenant != tenantID {
			continue
		}
		sess, ok := i.clients[userID]
		if ok {
			msg.ToUserID = userID
			sess.sendCh <- msg
			continue
		}
		rec := dbmodels.PushData{
			UserID:     userID,
			TenantID:   tenantID,
			Code:       models.WebhookEventType(msg.Code),
			Msg:        msg.Msg,
			TaskID:     msg.TaskID,
			MediaBuyID: msg.MediaBuyID,
		}
		if err := i.store.Create(rec); err != nil {
			log.
				WithField("user_id", userID).
				WithError(err).
				Error("ошибка сохранения события для отключённого ревьюера")
		}
	}
}

func (i *impl) SendClose(userID string) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	sess, ok := i.clients[userID]
	if ok {
		sess.stop()
	}
}

func (i *impl) IsConnected(userID string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.isConnected(userID)
}

func (i *impl) isConnected(userID string) bool {
	sess, ok := i.clients[userID]
	if !ok || sess.conn == nil || sess.conn.Conn == nil {
		return false
	}
	return true
}

func (i *impl) sendDelayedMessages(userID string) {
	logger := log.WithField("user_id", userID)
	// второй флаш при быстром переподключении задвоит события
	_, _ = lock.Try("push_flush:"+userID, func() error {
		list, err := i.store.List(userID)
		if err != nil {
			logger.WithError(err).Error("ошибка получения списка не отправленных событий")
			return err
		}
		sendedIDs := []string{}
		for _, item := range list {
			i.mu.RLock()
			sess, connected := i.clients[userID]
			if connected && i.isConnected(userID) {
				msg := wsmodels.ServerMessage{
					ToUserID:   userID,
					Time:       item.CreatedAt.Format("02.01.2006 15:04:05"),
					Code:       string(item.Code),
					Msg:        item.Msg,
					TaskID:     item.TaskID,
					MediaBuyID: item.MediaBuyID,
				}
				sess.sendCh <- msg
				sendedIDs = append(sendedIDs, item.ID)
			}
			i.mu.RUnlock()
		}
		if len(sendedIDs) > 0 {
			err = i.store.Delete(sendedIDs)
			if err != nil {
				logger.WithError(err).Error("ошибка удаления отправленных событий")
				return err
			}
		}
		return nil
	})
}
