package handlers

import (
	"github.com/anjiri1684/tutor_booking/services"
	"github.com/anjiri1684/tutor_booking/utils"
	"github.com/gofiber/fiber/v2"
)

// GetConversations lists the caller's contacts with their latest message and
// unread count.
func GetConversations(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	summaries, err := services.ContactSummaries(c.UserContext(), userID, utils.CurrentRole(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(summaries)
}

func GetConversationMessages(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	counterpartID, ok := paramID(c, "counterpartId")
	if !ok {
		return badID(c, "counterpart")
	}

	key := services.PairKey(userID, counterpartID)
	messages, err := services.ListThread(c.UserContext(), key)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"pair_key": key, "messages": messages})
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

func SendMessage(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	counterpartID, ok := paramID(c, "counterpartId")
	if !ok {
		return badID(c, "counterpart")
	}
	var req SendMessageRequest
	if ok, err := parse(c, &req); !ok {
		return err
	}

	message, err := services.SendMessage(c.UserContext(), services.PairKey(userID, counterpartID), userID, counterpartID, req.Text)
	if err != nil {
		return failAction(c, userID, "Failed to send message.", err)
	}
	if message == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.Status(fiber.StatusCreated).JSON(message)
}

func MarkConversationRead(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	counterpartID, ok := paramID(c, "counterpartId")
	if !ok {
		return badID(c, "counterpart")
	}

	n, err := services.MarkThreadRead(c.UserContext(), services.PairKey(userID, counterpartID), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"marked_read": n})
}

func EditMessage(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	messageID, ok := paramID(c, "messageId")
	if !ok {
		return badID(c, "message")
	}
	var req SendMessageRequest
	if ok, err := parse(c, &req); !ok {
		return err
	}

	message, err := services.EditMessage(c.UserContext(), userID, messageID, req.Text)
	if err != nil {
		return failAction(c, userID, "Failed to edit message.", err)
	}
	return c.JSON(message)
}

func DeleteMessage(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	messageID, ok := paramID(c, "messageId")
	if !ok {
		return badID(c, "message")
	}

	if err := services.DeleteMessage(c.UserContext(), userID, messageID); err != nil {
		return failAction(c, userID, "Failed to delete message.", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func GetUnreadCount(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	n, err := services.UnreadCountFor(c.UserContext(), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"unread": n})
}
