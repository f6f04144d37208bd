package utils

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"conciergebot/internal/models"
)

const ordersSheet = "Заказы"

var orderHeaders = []string{"ID", "Название", "Описание", "Бюджет", "Срок", "Статус"}

// OrdersWorkbook собирает xlsx со списком заказов и возвращает его содержимое.
func OrdersWorkbook(orders []models.Order) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(ordersSheet); err != nil {
		return nil, fmt.Errorf("создание листа: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("удаление листа по умолчанию: %w", err)
	}
	if index, err := f.GetSheetIndex(ordersSheet); err == nil {
		f.SetActiveSheet(index)
	}

	for i, header := range orderHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(ordersSheet, cell, header); err != nil {
			return nil, fmt.Errorf("заголовок %s: %w", cell, err)
		}
	}
	for row, order := range orders {
		values := []any{order.ID, order.Title, order.Description, order.Price, FormatDateForDisplay(order.ExpireDate), order.Status}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(ordersSheet, cell, value); err != nil {
				return nil, fmt.Errorf("ячейка %s: %w", cell, err)
			}
		}
	}
	_ = f.SetColWidth(ordersSheet, "B", "C", 40)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("запись xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
