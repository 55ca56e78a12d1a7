package handlers

import "github.com/gofiber/fiber/v2"

// decodeBody parses the request body into out. Bodies sent without a
// Content-Type are decoded with the app's JSON decoder; an empty body leaves
// out untouched.
func decodeBody(c *fiber.Ctx, out any) error {
	body := c.Body()
	if len(body) == 0 {
		return nil
	}
	if len(c.Request().Header.ContentType()) == 0 {
		return c.App().Config().JSONDecoder(body, out)
	}
	return c.BodyParser(out)
}
