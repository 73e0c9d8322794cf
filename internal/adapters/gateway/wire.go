package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/groupcall/internal/domain"
)

const (
	typeRequest  = "request"
	typeResponse = "response"
	typePing     = "ping"
	typePong     = "pong"
)

const (
	methodSignIn         = "auth.sign_in"
	methodResolveEntity  = "contacts.resolve_entity"
	methodFullChannel    = "channels.get_full_channel"
	methodFullChat       = "messages.get_full_chat"
	methodDiscardCall    = "phone.discard_group_call"
	methodJoinGroupCall  = "phone.join_group_call"
	methodLeaveGroupCall = "phone.leave_group_call"
)

type envelope struct {
	Type string `json:"type"`
}

type request struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

type response struct {
	Type   string          `json:"type"`
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
}

// RPCError is an error reported by the gateway, e.g. 403 CHAT_ADMIN_REQUIRED.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type signInParams struct {
	APIID       int    `json:"api_id"`
	APIHash     string `json:"api_hash"`
	SessionName string `json:"session_name"`
}

type resolveParams struct {
	ID int64 `json:"id"`
}

type inputChannel struct {
	ChannelID  int64 `json:"channel_id"`
	AccessHash int64 `json:"access_hash"`
}

type fullChannelParams struct {
	Channel inputChannel `json:"channel"`
}

type fullChatParams struct {
	ChatID int64 `json:"chat_id"`
}

type discardParams struct {
	Call domain.CallHandle `json:"call"`
}

// inputPeer is the wire form of domain.PeerAddress.
type inputPeer struct {
	Type       string `json:"type"`
	ChannelID  int64  `json:"channel_id,omitempty"`
	ChatID     int64  `json:"chat_id,omitempty"`
	AccessHash int64  `json:"access_hash,omitempty"`
}

func encodePeer(p domain.PeerAddress) (inputPeer, error) {
	switch v := p.(type) {
	case domain.ChannelPeer:
		return inputPeer{Type: "channel", ChannelID: v.ChannelID, AccessHash: v.AccessHash}, nil
	case domain.BasicGroupPeer:
		return inputPeer{Type: "chat", ChatID: v.ChatID}, nil
	default:
		return inputPeer{}, fmt.Errorf("unsupported peer %T", p)
	}
}

type joinParams struct {
	ChatID int64     `json:"chat_id"`
	JoinAs inputPeer `json:"join_as"`
	SDP    string    `json:"sdp"`
	Muted  bool      `json:"muted"`
}

type joinResult struct {
	SDP string `json:"sdp"`
}

type leaveParams struct {
	ChatID int64 `json:"chat_id"`
}
