package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Taller-api/internal/application/dto"
	"github.com/jhoicas/Taller-api/internal/domain"
	dbilling "github.com/jhoicas/Taller-api/internal/domain/billing"
)

// validationCodes código por error de validación conocido.
var validationCodes = []struct {
	err  error
	code string
}{
	{domain.ErrInvalidAmount, "INVALID_AMOUNT"},
	{domain.ErrMissingMethod, "MISSING_METHOD"},
	{domain.ErrMissingSubMethod, "MISSING_SUB_METHOD"},
	{domain.ErrBatchExceedsBalance, "BATCH_EXCEEDS_BALANCE"},
	{domain.ErrEmptyBatch, "EMPTY_BATCH"},
	{domain.ErrBatchClosed, "BATCH_CLOSED"},
	{domain.ErrUnknownItem, "UNKNOWN_ITEM"},
	{domain.ErrSettlementNotApplicable, "SETTLEMENT_NOT_APPLICABLE"},
	{domain.ErrInvalidDecision, "INVALID_DECISION"},
	{domain.ErrInvalidVoucherType, "INVALID_VOUCHER_TYPE"},
}

// writeError traduce errores de dominio a respuesta HTTP. Los errores de
// persistencia no exponen el detalle.
func writeError(c *fiber.Ctx, err error) error {
	var partial *dbilling.BatchCommitError
	if errors.As(err, &partial) {
		status := fiber.StatusInternalServerError
		if errors.Is(err, domain.ErrConflict) {
			status = fiber.StatusConflict
		}
		return c.Status(status).JSON(dto.BatchErrorResponse{
			Code:           "PARTIAL_COMMIT",
			Message:        "no se pudo registrar todo el lote; consulte el saldo y reintente solo lo pendiente",
			CommittedCount: partial.Committed,
			Total:          partial.Total,
		})
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "VERSION_CONFLICT", Message: "el informe cambió; vuelva a cargarlo"})
	case errors.Is(err, domain.ErrInvalidInput):
		code := "VALIDATION"
		for _, vc := range validationCodes {
			if errors.Is(err, vc.err) {
				code = vc.code
				break
			}
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "no se pudo completar la operación"})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
