package http

import (
	"encoding/json"

	"github.com/medrelay/signal-server/internal/core"
	"github.com/medrelay/signal-server/internal/proto"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeRegister:
		var reg proto.RegisterData
		if err := json.Unmarshal(inbound.Data, &reg); err != nil {
			return nil, badRequest("malformed register payload")
		}
		if reg.UserID == "" {
			return nil, badRequest("userId is required")
		}
		return &core.Command{Kind: core.CommandRegister, User: reg.UserID}, nil

	case proto.InboundTypeCallOffer:
		var offer proto.OfferData
		if err := json.Unmarshal(inbound.Data, &offer); err != nil {
			return nil, badRequest("malformed call-offer payload")
		}
		if offer.From == "" || offer.To == "" {
			return nil, badRequest("from and to are required")
		}
		return &core.Command{
			Kind:    core.CommandCallOffer,
			From:    offer.From,
			To:      offer.To,
			Payload: offer.Offer,
		}, nil

	case proto.InboundTypeCallAnswer:
		var answer proto.AnswerData
		if err := json.Unmarshal(inbound.Data, &answer); err != nil {
			return nil, badRequest("malformed call-answer payload")
		}
		if answer.From == "" || answer.To == "" {
			return nil, badRequest("from and to are required")
		}
		return &core.Command{
			Kind:    core.CommandCallAnswer,
			From:    answer.From,
			To:      answer.To,
			Payload: answer.Answer,
		}, nil

	case proto.InboundTypeICECandidate:
		var cand proto.CandidateData
		if err := json.Unmarshal(inbound.Data, &cand); err != nil {
			return nil, badRequest("malformed ice-candidate payload")
		}
		if cand.From == "" || cand.To == "" {
			return nil, badRequest("from and to are required")
		}
		return &core.Command{
			Kind:    core.CommandICECandidate,
			From:    cand.From,
			To:      cand.To,
			Payload: cand.Candidate,
		}, nil

	case proto.InboundTypeCallReject, proto.InboundTypeCallEnded:
		var end proto.EndData
		if err := json.Unmarshal(inbound.Data, &end); err != nil {
			return nil, badRequest("malformed payload")
		}
		if end.From == "" || end.To == "" {
			return nil, badRequest("from and to are required")
		}
		kind := core.CommandCallReject
		if inbound.Type == proto.InboundTypeCallEnded {
			kind = core.CommandCallEnded
		}
		return &core.Command{Kind: kind, From: end.From, To: end.To}, nil

	case proto.InboundTypeSendMessage:
		var msg proto.SendMessageData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, badRequest("malformed send_message payload")
		}
		if msg.User == "" || msg.Text == "" {
			return nil, badRequest("user and text are required")
		}
		return &core.Command{Kind: core.CommandSendMessage, User: msg.User, Text: msg.Text}, nil

	default:
		return nil, &proto.Error{Code: core.ErrCodeUnknownEvent, Msg: "unknown event type"}
	}
}

func badRequest(msg string) *proto.Error {
	return &proto.Error{Code: core.ErrCodeBadRequest, Msg: msg}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventCallOffer:
		return proto.Outbound{
			Type: proto.OutboundTypeCallOffer,
			Data: proto.OfferEvent{From: event.From, Offer: event.Payload},
		}
	case core.EventCallAnswer:
		return proto.Outbound{
			Type: proto.OutboundTypeCallAnswer,
			Data: proto.AnswerEvent{Answer: event.Payload},
		}
	case core.EventICECandidate:
		return proto.Outbound{
			Type: proto.OutboundTypeICECandidate,
			Data: proto.CandidateEvent{Candidate: event.Payload},
		}
	case core.EventCallReject:
		return proto.Outbound{Type: proto.OutboundTypeCallReject}
	case core.EventCallEnded:
		return proto.Outbound{Type: proto.OutboundTypeCallEnded}
	case core.EventUserDisconnected:
		return proto.Outbound{
			Type: proto.OutboundTypeUserDisconnected,
			Data: proto.UserDisconnectedEvent{UserID: event.User},
		}
	case core.EventDeliveryFailed:
		return proto.Outbound{
			Type: proto.OutboundTypeDeliveryFailed,
			Data: proto.DeliveryFailedEvent{To: event.To},
		}
	case core.EventChatMessage:
		return proto.Outbound{
			Type: proto.OutboundTypeReceiveMessage,
			Data: proto.ReceiveMessageEvent{
				User: event.Message.User,
				Text: event.Message.Text,
				TS:   event.Message.CreatedAt.Unix(),
			},
		}
	case core.EventHistory:
		messages := make([]proto.ReceiveMessageEvent, 0, len(event.Messages))
		for _, msg := range event.Messages {
			messages = append(messages, proto.ReceiveMessageEvent{
				User: msg.User,
				Text: msg.Text,
				TS:   msg.CreatedAt.Unix(),
			})
		}
		return proto.Outbound{
			Type: proto.OutboundTypeHistory,
			Data: proto.HistoryEvent{Messages: messages},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unmapped event"}}
	}
}
