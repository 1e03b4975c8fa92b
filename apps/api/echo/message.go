package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/maharatedu/platform/core"
	"github.com/maharatedu/platform/core/messaging"
)

type messageApi struct {
	svc    *messaging.Service
	logger core.Logger
}

func registerMessageAPI(
	g *echo.Group,
	jwt, revoked echo.MiddlewareFunc,
	svc *messaging.Service,
	logger core.Logger,
) {
	api := messageApi{svc: svc, logger: logger}

	mg := g.Group("/messages", jwt, revoked)
	mg.GET("", api.query)
	mg.GET("/unread", api.unreadCount)
	mg.GET("/stream", api.stream)
	mg.POST("", api.send)
	mg.POST("/read", api.markRead)
	mg.DELETE("", api.destroySelected)

	mg.POST("/mass", api.sendMass, teacherMiddleware())
}

// query returns the caller's messages oldest-first; `?peer=<id>`
// restricts the result to the conversation with that user.
func (api *messageApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	msgs, err := api.svc.List(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "listing messages")
	}
	if peer := ctx.QueryParam("peer"); peer != "" {
		msgs = messaging.Conversation(msgs, peer)
	}
	if msgs == nil {
		msgs = []messaging.Message{}
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (api *messageApi) unreadCount(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	msgs, err := api.svc.List(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "listing messages")
	}
	return ctx.JSON(http.StatusOK, UnreadCountResponse{Unread: messaging.UnreadCount(claims.Subject, msgs)})
}

func (api *messageApi) send(ctx echo.Context) error {
	var data SendMessageRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SendMessageRequest")
	}
	if err := data.Validate(core.Validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	id, err := api.svc.Send(ctx.Request().Context(), claims.Subject, data.ReceiverID, data.Message)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"id": id})
}

func (api *messageApi) sendMass(ctx echo.Context) error {
	var data MassMessageRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MassMessageRequest")
	}
	if err := data.Validate(core.Validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err = api.svc.SendMass(ctx.Request().Context(), claims.Subject, data.ReceiverIDs, data.Message); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Message sent to all recipients."})
}

func (api *messageApi) markRead(ctx echo.Context) error {
	var data MessageIDsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MessageIDsRequest")
	}
	if err := data.Validate(core.Validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err = api.svc.MarkRead(ctx.Request().Context(), claims.Subject, data.MessageIDs); err != nil {
		return errors.Wrap(err, "marking messages read")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Messages marked as read."})
}

func (api *messageApi) destroySelected(ctx echo.Context) error {
	var data MessageIDsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MessageIDsRequest")
	}
	if err := data.Validate(core.Validate); err != nil {
		return err
	}

	if err := api.svc.DeleteSelected(ctx.Request().Context(), data.MessageIDs); err != nil {
		return errors.Wrap(err, "deleting messages")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// stream pushes the caller's message list over Server-Sent Events.
// Every update carries the full list; a `state` event precedes it
// whenever the subscription state changes (e.g. while the backing
// index is still building).
func (api *messageApi) stream(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	rctx := ctx.Request().Context()
	stream := api.svc.Subscribe(rctx, claims.Subject, api.logger)
	defer stream.Unsubscribe()

	// state changes (e.g. entering degraded mode) happen between
	// message updates, so they are also polled on a short tick
	tick := time.NewTicker(2 * time.Second)
	defer tick.Stop()

	lastState := messaging.StateUnsubscribed
	for {
		select {
		case <-tick.C:
			if st := stream.State(); st != lastState {
				lastState = st
				writeSSE(res, "state", st.String())
				res.Flush()
			}
		case msgs, ok := <-stream.Updates():
			if !ok {
				if err := stream.Err(); err != nil {
					return errors.Wrap(err, "message stream failed")
				}
				return nil
			}
			if st := stream.State(); st != lastState {
				lastState = st
				writeSSE(res, "state", st.String())
			}
			data, err := json.Marshal(msgs)
			if err != nil {
				return errors.Wrap(err, "encoding messages")
			}
			writeSSE(res, "messages", string(data))
			res.Flush()
		case <-rctx.Done():
			return nil
		}
	}
}

func writeSSE(res *echo.Response, event, data string) {
	_, _ = fmt.Fprintf(res, "event: %s\ndata: %s\n\n", event, data)
}
