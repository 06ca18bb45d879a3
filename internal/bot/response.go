package bot

import (
	"github.com/bwmarrin/discordgo"
)

// Messenger is the part of the Discord REST API the bot talks to
type Messenger interface {
	Send(channelID string, content string) (string, error)
	SendEmbed(channelID string, embed *discordgo.MessageEmbed) error
	Edit(channelID string, messageID string, content string) error
	Delete(channelID string, messageID string) error
	React(channelID string, messageID string, emoji string) error
}

type sessionMessenger struct {
	session *discordgo.Session
}

func (m sessionMessenger) Send(channelID string, content string) (string, error) {
	message, err := m.session.ChannelMessageSend(channelID, content)
	if err != nil {
		return "", err
	}
	return message.ID, nil
}

func (m sessionMessenger) SendEmbed(channelID string, embed *discordgo.MessageEmbed) error {
	_, err := m.session.ChannelMessageSendEmbed(channelID, embed)
	return err
}

func (m sessionMessenger) Edit(channelID string, messageID string, content string) error {
	_, err := m.session.ChannelMessageEdit(channelID, messageID, content)
	return err
}

func (m sessionMessenger) Delete(channelID string, messageID string) error {
	return m.session.ChannelMessageDelete(channelID, messageID)
}

func (m sessionMessenger) React(channelID string, messageID string, emoji string) error {
	return m.session.MessageReactionAdd(channelID, messageID, emoji)
}

type ResponseString struct {
	string
}
type ResponseEmbed struct {
	discordgo.MessageEmbed
}

type Response interface {
	Send(channelid string, messenger Messenger) error
	Text() string
}

func (response ResponseString) Send(channelid string, messenger Messenger) error {
	_, err := messenger.Send(channelid, response.string)
	return err
}

func (response ResponseString) Text() string {
	return response.string
}

func (response ResponseEmbed) Send(channelid string, messenger Messenger) error {
	return messenger.SendEmbed(channelid, &response.MessageEmbed)
}

// Title and fields of the embed, one per line
func (response ResponseEmbed) Text() string {
	text := response.Title
	if response.Description != "" {
		text += "\n" + response.Description
	}
	for _, field := range response.Fields {
		text += "\n" + field.Name + ": " + field.Value
	}
	return text
}
