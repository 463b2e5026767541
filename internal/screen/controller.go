package screen

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"coffee-kiosk/internal/models"
	"coffee-kiosk/internal/order"
)

// Controller binds the view-model to the kiosk's HTTP surface. It is a thin
// transport: every decision already lives in the view-model and use cases.
type Controller struct {
	vm  *MenuListViewModel
	log *zap.Logger
}

func NewController(vm *MenuListViewModel, log *zap.Logger) *Controller {
	return &Controller{vm: vm, log: log}
}

type orderItemRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int    `json:"quantity"`
}

type createOrderRequest struct {
	Items []orderItemRequest `json:"items"`
}

// Menu triggers a fetch when the screen has no data yet and returns the
// current screen snapshot.
func (ct *Controller) Menu(c *fiber.Ctx) error {
	if st := ct.vm.State(); st != StateDataFetched {
		ct.vm.Load(c.UserContext())
	}
	return c.JSON(ct.vm.Snapshot())
}

func (ct *Controller) Screen(c *fiber.Ctx) error {
	return c.JSON(ct.vm.Snapshot())
}

func (ct *Controller) DismissAlert(c *fiber.Ctx) error {
	ct.vm.DismissAlert()
	return c.SendStatus(fiber.StatusNoContent)
}

func (ct *Controller) Create(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if len(req.Items) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "items are required"})
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		if it.MenuItemID == "" || it.Quantity <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "each item needs menu_item_id and a positive quantity"})
		}
		items = append(items, models.OrderItem{
			MenuItemID: it.MenuItemID,
			Name:       it.Name,
			PriceCents: it.PriceCents,
			Quantity:   it.Quantity,
		})
	}

	out, err := ct.vm.PlaceOrder(c.UserContext(), items)
	if err != nil && out.Kind != order.Failed {
		ct.log.Error("place order", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	switch out.Kind {
	case order.Submitted:
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "submitted", "order": out.Order})
	case order.Queued:
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "queued", "order": out.Order})
	case order.Rejected:
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"status": "rejected", "error": out.Reason})
	default:
		ct.log.Error("place order failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "failed", "error": out.Reason})
	}
}

// Retry runs a manual retry pass over the pending queue.
func (ct *Controller) Retry(c *fiber.Ctx) error {
	rep, err := ct.vm.RetryPending(c.UserContext())
	if err != nil {
		ct.log.Error("manual retry", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.JSON(rep)
}
