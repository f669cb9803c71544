package bus

// RoutingKey identifies a conversation as "channel:chat_id".
func RoutingKey(channel ChannelType, chatID string) string {
	if chatID == "" {
		return string(channel)
	}

	return string(channel) + ":" + chatID
}
