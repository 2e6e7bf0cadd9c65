package handlers

import (
	"time"

	"geethika.lk/app/internal/modules/designapprovals"
	"geethika.lk/app/internal/modules/orders"
	"geethika.lk/app/internal/modules/payments"
	"geethika.lk/app/internal/modules/products"
	"geethika.lk/app/pkg/view"
)

func ts(t time.Time) string { return view.Timestamp(&t) }

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func ProductCard(p products.Product) view.ProductCard {
	card := view.ProductCard{
		ID:             p.ID,
		Name:           p.Name,
		Slug:           p.Slug,
		PriceCents:     p.PriceCents,
		Price:          view.MoneyFromCents(p.PriceCents, p.Currency),
		CompareAtCents: p.CompareAtCents,
		ImageURL:       p.PrimaryImage(),
		InStock:        p.Stock > 0,
		IsCustomizable: p.IsCustomizable,
		IsFeatured:     p.IsFeatured,
	}
	if p.CompareAtCents != nil {
		card.CompareAt = view.MoneyFromCents(*p.CompareAtCents, p.Currency)
	}
	return card
}

func ProductList(res products.ListResult) view.ProductList {
	out := view.ProductList{
		Items:      make([]view.ProductCard, 0, len(res.Items)),
		Pagination: view.NewPagination(res.Page, res.PageSize, res.Total),
	}
	for _, p := range res.Items {
		out.Items = append(out.Items, ProductCard(p))
	}
	return out
}

func OrderSummary(o orders.Order, count int) view.OrderSummary {
	return view.OrderSummary{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		PaymentMethod: o.PaymentMethod,
		Email:         o.Email,
		CustomerName:  o.CustomerName,
		ItemCount:     count,
		TotalCents:    o.TotalCents,
		Total:         view.MoneyFromCents(o.TotalCents, o.Currency),
		CreatedAt:     ts(o.CreatedAt),
	}
}

func OrderDetail(o orders.Order, items []orders.OrderItem) view.OrderDetail {
	a := o.Address()
	d := view.OrderDetail{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		Status:         o.Status,
		PaymentStatus:  o.PaymentStatus,
		PaymentMethod:  o.PaymentMethod,
		ShippingMethod: o.ShippingMethod,
		Email:          o.Email,
		CustomerName:   o.CustomerName,
		Phone:          o.Phone,
		Address:        view.Address{Line1: a.Line1, Line2: a.Line2, City: a.City, District: a.District, PostalCode: a.PostalCode},
		Notes:          str(o.Notes),
		Currency:       o.Currency,
		SubtotalCents:  o.SubtotalCents,
		ShippingCents:  o.ShippingCents,
		DiscountCents:  o.DiscountCents,
		TotalCents:     o.TotalCents,
		RefundedCents:  o.RefundedCents,
		Subtotal:       view.MoneyFromCents(o.SubtotalCents, o.Currency),
		Shipping:       view.MoneyFromCents(o.ShippingCents, o.Currency),
		Discount:       view.MoneyFromCents(o.DiscountCents, o.Currency),
		Total:          view.MoneyFromCents(o.TotalCents, o.Currency),
		PaidAt:         view.Timestamp(o.PaidAt),
		CancelledAt:    view.Timestamp(o.CancelledAt),
		CreatedAt:      ts(o.CreatedAt),
		Items:          make([]view.OrderItem, 0, len(items)),
	}
	for _, it := range items {
		c := it.DecodeCustomization()
		d.Items = append(d.Items, view.OrderItem{
			ID:               it.ID,
			ProductID:        it.ProductID,
			ProductName:      it.ProductName,
			ProductSlug:      it.ProductSlug,
			ImageURL:         it.ImageURL,
			Quantity:         it.Quantity,
			UnitPriceCents:   it.UnitPriceCents,
			LineTotalCents:   it.LineTotalCents,
			UnitPrice:        view.MoneyFromCents(it.UnitPriceCents, o.Currency),
			LineTotal:        view.MoneyFromCents(it.LineTotalCents, o.Currency),
			Customization:    view.CustomizationView{Fields: c.Fields, ImageURL: c.ImageURL, Size: c.Size},
			RequiresApproval: it.RequiresApproval,
		})
	}
	return d
}

// FullOrderDetail includes the timeline and shipments.
func FullOrderDetail(det orders.Detail) view.OrderDetail {
	d := OrderDetail(det.Order, det.Items)
	for _, e := range det.Events {
		d.Events = append(d.Events, view.OrderEvent{
			Action:    e.Action,
			From:      e.FromStatus,
			To:        e.ToStatus,
			ActorRole: e.ActorRole,
			Note:      str(e.Note),
			At:        ts(e.CreatedAt),
		})
	}
	for _, s := range det.Shipments {
		d.Shipments = append(d.Shipments, view.Shipment{
			Courier:        s.Courier,
			TrackingNumber: s.TrackingNumber,
			ShippedAt:      ts(s.ShippedAt),
		})
	}
	return d
}

func AdminOrderDetail(det orders.Detail, pays []payments.Payment, refunds []payments.Refund, proofs []designapprovals.DesignApproval) view.AdminOrderDetail {
	out := view.AdminOrderDetail{
		OrderDetail: FullOrderDetail(det),
		UserID:      str(det.Order.UserID),
		Ledger:      make([]view.LedgerEntry, 0, len(det.Financial)),
		Payments:    make([]view.PaymentAttempt, 0, len(pays)),
		Refunds:     make([]view.RefundRecord, 0, len(refunds)),
		Approvals:   DesignProofs(proofs),
	}
	for _, f := range det.Financial {
		out.Ledger = append(out.Ledger, view.LedgerEntry{
			Event:       f.Event,
			AmountCents: f.AmountCents,
			Amount:      view.MoneyFromCents(f.AmountCents, f.Currency),
			RefType:     f.RefType,
			RefID:       f.RefID,
			At:          ts(f.CreatedAt),
		})
	}
	for _, p := range pays {
		out.Payments = append(out.Payments, view.PaymentAttempt{
			ID:               p.ID,
			Provider:         p.Provider,
			GatewayOrderID:   str(p.ProviderRef),
			GatewayPaymentID: str(p.ProviderPaymentID),
			Status:           p.Status,
			AmountCents:      p.AmountCents,
			Error:            str(p.ErrorMessage),
			CreatedAt:        ts(p.CreatedAt),
		})
	}
	for _, r := range refunds {
		out.Refunds = append(out.Refunds, view.RefundRecord{
			ID:          r.ID,
			Status:      r.Status,
			AmountCents: r.AmountCents,
			Amount:      view.MoneyFromCents(r.AmountCents, r.Currency),
			Reason:      str(r.Reason),
			Error:       str(r.ErrorMessage),
			CreatedAt:   ts(r.CreatedAt),
		})
	}
	return out
}

func DesignProofs(list []designapprovals.DesignApproval) []view.DesignProof {
	out := make([]view.DesignProof, 0, len(list))
	for _, a := range list {
		out = append(out, DesignProof(a))
	}
	return out
}

func DesignProof(a designapprovals.DesignApproval) view.DesignProof {
	return view.DesignProof{
		ID:               a.ID,
		OrderItemID:      a.OrderItemID,
		Version:          a.Version,
		ProofURL:         a.ProofURL,
		Status:           a.Status,
		AdminNote:        str(a.AdminNote),
		CustomerFeedback: str(a.CustomerFeedback),
		RespondedAt:      view.Timestamp(a.RespondedAt),
		CreatedAt:        ts(a.CreatedAt),
	}
}
