package bus

// Metadata keys shared by channels and the router.
const (
	// MetaMessageID is the platform id of the message an inbound message or
	// interaction refers to, always as a string.
	MetaMessageID = "message_id"
	// MetaMentions holds the []string forms of the bot mention in a chat.
	MetaMentions = "mentions"
	// MetaDirect marks private conversations, where commands need no prefix.
	MetaDirect = "direct"
	// MetaCommand and MetaOptions carry a platform slash command and its
	// already typed option values (map[string]any).
	MetaCommand = "command"
	MetaOptions = "options"
	// MetaFollowup marks every reply after the first one to an invocation.
	MetaFollowup = "followup"
)
