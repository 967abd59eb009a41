package http

import (
	"github.com/vovakirdan/friendlychat-server/internal/core"
	"github.com/vovakirdan/friendlychat-server/internal/proto"
	"github.com/vovakirdan/friendlychat-server/internal/store"
)

func messageToProto(m *store.Message) *proto.Message {
	return &proto.Message{
		ID:        m.ID,
		Name:      m.Name,
		Text:      m.Text,
		PhotoURL:  m.PhotoURL,
		ImageURL:  m.ImageURL,
		Moderated: m.Moderated,
		TS:        m.CreatedAt.UnixMilli(),
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	name := proto.EventChildAdded
	if event.Kind == core.EventChildChanged {
		name = proto.EventChildChanged
	}
	return proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: name,
		Data:  messageToProto(&event.Message),
	}
}

func inboundReply(inbound proto.Inbound) proto.Outbound {
	switch inbound.Type {
	case proto.InboundTypePing:
		return proto.Outbound{Type: proto.OutboundTypePong}
	default:
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: "invalid_message", Msg: "unknown message type"},
		}
	}
}
