package broker

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"bitbucket.org/novatechnologies/stocks/domain"
	"bitbucket.org/novatechnologies/stocks/infra/logger"
)

var _ domain.EventsBroker = new(EventsInMemory)

// EventsInMemory is in-memory manager which stores subscribtions and run
// handlers as separate goroutines.
type EventsInMemory struct {
	log         *log.Entry
	mu          sync.RWMutex
	subscribers map[domain.EventType][]domain.EventHandler
}

func NewInMemory() *EventsInMemory {
	return &EventsInMemory{
		log:         logger.DefaultLogger,
		subscribers: make(map[domain.EventType][]domain.EventHandler),
	}
}

func (ps *EventsInMemory) WithLogger(lg *log.Entry) *EventsInMemory {
	ps.log = lg
	return ps
}

func (ps *EventsInMemory) Subscribe(
	tp domain.EventType,
	h domain.EventHandler,
) {
	if tp == "" || h == nil {
		return
	}

	ps.mu.Lock()
	ps.subscribers[tp] = append(ps.subscribers[tp], h)
	ps.mu.Unlock()
}

func (ps *EventsInMemory) Publish(tp domain.EventType, ev *domain.Event) {
	ps.mu.RLock()
	handlers := ps.subscribers[tp]
	ps.mu.RUnlock()

	for _, handler := range handlers {
		currHandler := handler

		go func() {
			defer func() {
				if r := recover(); r != nil {
					ps.log.Errorf(
						"Panic while executing handler for %s tp: %+v",
						tp, r,
					)
				}
			}()

			if err := currHandler(ev); err != nil {
				ps.log.Errorf(
					"Error while executing handler for %s tp: %v",
					tp, err,
				)
			}
		}()
	}
}
