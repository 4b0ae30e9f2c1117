package events

// Typed payload constructors. Entry data stays an open map at the storage
// boundary so consumers tolerate unknown keys, but emission sites build it
// through these so the well-known keys stay consistent with the template
// placeholders ({{name}}, {{service}}, {{item}}, ...).

// ContactData is the payload for contact.created.
func ContactData(name, email, phone string, isNew bool) map[string]any {
	return map[string]any{
		"contact_name":   name,
		"contact_email":  email,
		"contact_phone":  phone,
		"is_new_contact": isNew,
	}
}

// BookingData is the payload for booking.created. Date and time are
// pre-rendered display strings, ready for template substitution.
func BookingData(contactID, name, email, phone string, isNew bool, serviceName, bookingDate, bookingTime string) map[string]any {
	return map[string]any{
		"contact_id":     contactID,
		"contact_name":   name,
		"contact_email":  email,
		"contact_phone":  phone,
		"is_new_contact": isNew,
		"service_name":   serviceName,
		"booking_date":   bookingDate,
		"booking_time":   bookingTime,
	}
}

// InventoryData is the payload for inventory.updated and inventory.low.
// Quantity is the post-deduction level.
func InventoryData(itemName string, quantity, quantityUsed int, unit string, lowStockLevel int, vendorEmail string) map[string]any {
	data := map[string]any{
		"item_name":       itemName,
		"quantity":        quantity,
		"quantity_used":   quantityUsed,
		"unit":            unit,
		"low_stock_level": lowStockLevel,
	}
	if vendorEmail != "" {
		data["vendor_email"] = vendorEmail
	}
	return data
}

// FormCompletedData is the payload for form.completed.
func FormCompletedData(contactID string) map[string]any {
	return map[string]any{
		"contact_id": contactID,
	}
}
