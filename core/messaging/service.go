package messaging

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/maharatedu/platform/core"
	"github.com/maharatedu/platform/core/user"
	"github.com/maharatedu/platform/storage/docstore"
)

const Collection = "messages"

var errEmptyMessage = errors.New("message text is required")

// MassSendError reports the recipients a fan-out could not reach;
// deliveries to the remaining recipients persisted.
type MassSendError struct {
	Failed []string // recipient ids
	first  error
}

func (e *MassSendError) Error() string {
	return fmt.Sprintf("sending to %d recipient(s) failed: %v", len(e.Failed), e.first)
}

type Service struct {
	store   docstore.Store
	usrSvc  *user.Service
	mailSvc core.EmailService
}

// NewService wires the messaging module. usrSvc and mailSvc are only used
// for best-effort mass-message email notices and may be nil.
func NewService(store docstore.Store, usrSvc *user.Service, mailSvc core.EmailService) *Service {
	return &Service{store: store, usrSvc: usrSvc, mailSvc: mailSvc}
}

// Send writes one direct message. Empty or whitespace-only text is
// rejected locally without a store round-trip.
func (svc *Service) Send(ctx context.Context, senderID, receiverID, text string) (string, error) {
	data, err := newMessageData(senderID, receiverID, text)
	if err != nil {
		return "", err
	}
	id, err := svc.store.AddDocument(ctx, Collection, data)
	return id, errors.Wrap(err, "sending message")
}

// SendMass fans the message out to every recipient as independent
// concurrent writes; one failed delivery does not block the others. A
// partial failure surfaces as *MassSendError listing the failed ids.
func (svc *Service) SendMass(ctx context.Context, senderID string, receiverIDs []string, text string) error {
	if _, err := newMessageData(senderID, senderID, text); err != nil {
		return err
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed []string
		first  error
	)
	for _, rid := range receiverIDs {
		rid := rid
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, _ := newMessageData(senderID, rid, text)
			data["isMassMessage"] = true
			if _, err := svc.store.AddDocument(ctx, Collection, data); err != nil {
				mu.Lock()
				failed = append(failed, rid)
				if first == nil {
					first = err
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(failed) > 0 {
		return &MassSendError{Failed: failed, first: first}
	}
	svc.notifyByEmail(ctx, receiverIDs, text)
	return nil
}

// MarkRead flags the messages as read by the user. Only messages the
// user received are touched; ids addressed to someone else are skipped.
// Each message is an independent field update; a failure part-way leaves
// earlier messages marked, which is acceptable here, so the first error
// is reported but remaining updates still run.
func (svc *Service) MarkRead(ctx context.Context, userID string, messageIDs []string) error {
	var first error
	for _, id := range messageIDs {
		doc, err := svc.store.GetDocument(ctx, Collection, id)
		if err != nil {
			if first == nil {
				first = err
			}
			continue
		}
		if docstore.String(doc.Data, "receiverId") != userID {
			continue
		}
		err = svc.store.UpdateFields(ctx, Collection, id, []docstore.Update{
			{FieldPath: []string{"readBy", userID}, Value: true},
		})
		if err != nil && first == nil {
			first = err
		}
	}
	return errors.Wrap(first, "marking messages read")
}

// DeleteSelected removes the messages as one atomic batch: all or none.
func (svc *Service) DeleteSelected(ctx context.Context, messageIDs []string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	b := svc.store.Batch()
	for _, id := range messageIDs {
		b.Delete(Collection, id)
	}
	return errors.Wrap(b.Commit(ctx), "deleting messages")
}

// List is the one-shot variant of Subscribe: all the user's messages in
// ascending timestamp order.
func (svc *Service) List(ctx context.Context, userID string) ([]Message, error) {
	docs, err := svc.store.QueryOnce(ctx, Collection, participantFilters(userID), timestampOrder())
	if err != nil {
		return nil, err
	}
	return decodeAll(docs), nil
}

func newMessageData(senderID, receiverID, text string) (map[string]interface{}, error) {
	if strings.TrimSpace(text) == "" {
		return nil, core.NewValidationError(errEmptyMessage, core.FieldError{Field: "message", Error: errEmptyMessage.Error()})
	}
	return map[string]interface{}{
		"participants": participants(senderID, receiverID),
		"senderId":     senderID,
		"receiverId":   receiverID,
		"message":      text,
		"timestamp":    docstore.ServerTimestamp,
		"readBy":       map[string]interface{}{senderID: true, receiverID: false},
	}, nil
}

func participantFilters(userID string) []docstore.Filter {
	return []docstore.Filter{{Path: "participants", Op: "array-contains", Value: userID}}
}

func timestampOrder() []docstore.Order {
	return []docstore.Order{{Path: "timestamp"}}
}

// notifyByEmail is best effort; delivery problems never fail the send.
func (svc *Service) notifyByEmail(ctx context.Context, receiverIDs []string, text string) {
	if svc.usrSvc == nil || svc.mailSvc == nil {
		return
	}
	to := make([]mail.Address, 0, len(receiverIDs))
	for _, rid := range receiverIDs {
		usr, err := svc.usrSvc.GetByID(ctx, rid)
		if err != nil {
			continue
		}
		to = append(to, mail.Address{Name: usr.Name, Address: usr.Email})
	}
	if len(to) == 0 {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      to,
		Subject: "New announcement from your teacher",
		Body:    text,
	})
}
