package notifications

import "fmt"

// InProgressMessage renders the in-progress template.
func InProgressMessage(title string) string {
	return fmt.Sprintf(`Tu reporte "%s" está siendo generado...`, title)
}

// CompletedMessage renders the completion template.
func CompletedMessage(title string) string {
	return fmt.Sprintf(`Tu reporte "%s" ha sido generado exitosamente.`, title)
}

// FailedMessage renders the failure template.
func FailedMessage(title, detail string) string {
	return fmt.Sprintf(`Error al generar el reporte "%s": %s`, title, detail)
}
