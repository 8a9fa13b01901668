package telegram

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ChatAdmin is one administrator as reported by Telegram.
type ChatAdmin struct {
	UserID             int64
	DisplayName        string
	IsOwner            bool
	CanManageChat      bool
	CanDeleteMessages  bool
	CanRestrictMembers bool
	CanPromoteMembers  bool
	CanChangeInfo      bool
	CanInviteUsers     bool
	CanPinMessages     bool
	CanPostMessages    bool
	CanEditMessages    bool
}

// ChatInfo is chat metadata fetched from Telegram.
type ChatInfo struct {
	ChatID      int64
	Title       string
	MemberCount int
}

// API is the surface of Telegram this service consumes.
type API interface {
	ListAdministrators(ctx context.Context, chatID int64) ([]ChatAdmin, error)
	GetChat(ctx context.Context, chatID int64) (ChatInfo, error)
}

// Client wraps the Telegram bot API.
type Client struct {
	bot *tgbotapi.BotAPI
}

// NewClient authorizes the bot with the given token.
func NewClient(token string) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	log.Printf("telegram bot authorized username=%s", bot.Self.UserName)
	return &Client{bot: bot}, nil
}

// ListAdministrators fetches the live administrator list for a chat.
func (c *Client) ListAdministrators(ctx context.Context, chatID int64) ([]ChatAdmin, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	members, err := c.bot.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return nil, fmt.Errorf("get chat administrators: %w", err)
	}

	admins := make([]ChatAdmin, 0, len(members))
	for _, m := range members {
		if m.User == nil || m.User.ID == 0 {
			log.Printf("telegram admin without resolvable user chat_id=%d status=%s", chatID, m.Status)
			continue
		}
		admins = append(admins, ChatAdmin{
			UserID:             m.User.ID,
			DisplayName:        displayName(m.User),
			IsOwner:            m.Status == "creator",
			CanManageChat:      m.CanManageChat,
			CanDeleteMessages:  m.CanDeleteMessages,
			CanRestrictMembers: m.CanRestrictMembers,
			CanPromoteMembers:  m.CanPromoteMembers,
			CanChangeInfo:      m.CanChangeInfo,
			CanInviteUsers:     m.CanInviteUsers,
			CanPinMessages:     m.CanPinMessages,
			CanPostMessages:    m.CanPostMessages,
			CanEditMessages:    m.CanEditMessages,
		})
	}
	return admins, nil
}

// GetChat fetches chat metadata. The member count is best effort: a count
// failure does not fail the call.
func (c *Client) GetChat(ctx context.Context, chatID int64) (ChatInfo, error) {
	if err := ctx.Err(); err != nil {
		return ChatInfo{}, err
	}

	chat, err := c.bot.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return ChatInfo{}, fmt.Errorf("get chat: %w", err)
	}

	info := ChatInfo{ChatID: chat.ID, Title: chat.Title}
	count, err := c.bot.GetChatMembersCount(tgbotapi.ChatMemberCountConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		log.Printf("telegram member count failed chat_id=%d: %v", chatID, err)
	} else {
		info.MemberCount = count
	}
	return info, nil
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return u.UserName
	}
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	return name
}
