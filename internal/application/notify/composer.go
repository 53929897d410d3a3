package notify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kgbox/expiry-notifier/internal/domain"
)

// maxNamedProducts bounds the human-readable name list; the id list in the
// data payload keeps full fidelity for deep-linking.
const maxNamedProducts = 5

// Compose turns a tenant aggregate into a push message. It returns nil when
// the aggregate is empty — callers must not persist or dispatch anything in
// that case. When both counts are non-zero the expired framing wins.
func Compose(tenantID string, agg *domain.TenantAggregate) *domain.Message {
	if agg == nil || agg.Empty() {
		return nil
	}

	var title, body, msgType string
	names := productNames(agg)
	switch {
	case agg.ExpiredCount > 0:
		title = "Produk Kadaluarsa"
		body = fmt.Sprintf("%d produk sudah kadaluarsa: %s", agg.ExpiredCount, names)
		msgType = domain.NotificationTypeExpired
	default:
		title = "Produk Akan Kadaluarsa"
		body = fmt.Sprintf("%d produk akan kadaluarsa dalam 7 hari: %s", agg.NearCount, names)
		msgType = domain.NotificationTypeNear
	}

	return &domain.Message{
		Title: title,
		Body:  body,
		Data: map[string]string{
			"type":          msgType,
			"tenant_id":     tenantID,
			"product_ids":   strings.Join(ProductIDs(agg), ","),
			"expired_count": strconv.Itoa(agg.ExpiredCount),
			"near_count":    strconv.Itoa(agg.NearCount),
			"click_action":  "FLUTTER_NOTIFICATION_CLICK",
		},
	}
}

// ProductIDs returns every contributing product id, in scan order.
func ProductIDs(agg *domain.TenantAggregate) []string {
	ids := make([]string, 0, len(agg.Products))
	for _, p := range agg.Products {
		ids = append(ids, p.ProductID)
	}
	return ids
}

func productNames(agg *domain.TenantAggregate) string {
	var names []string
	for _, p := range agg.Products {
		if p.Name != "" {
			names = append(names, p.Name)
		}
	}
	if len(names) > maxNamedProducts {
		rest := len(names) - maxNamedProducts
		names = append(names[:maxNamedProducts], fmt.Sprintf("dan %d lainnya", rest))
	}
	return strings.Join(names, ", ")
}
