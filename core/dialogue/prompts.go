package dialogue

import (
	"fmt"
	"strings"

	"github.com/m3rciful/hmbot/core/reply"
	"github.com/m3rciful/hmbot/core/validate"
)

const policyChoices = "🔢 *1A* - Sé mi número de póliza\n❓ *1B* - No sé mi número de póliza"

func promptPolicyChoice() reply.Spec {
	return reply.Text("📄 *Consulta de póliza*\n\n¿Conoces tu número de póliza?\n\n"+policyChoices, false)
}

func repromptPolicyChoice() reply.Spec {
	return reply.Text("❌ Opción no válida. Por favor selecciona:\n\n"+policyChoices, false)
}

func promptPolicyNumber() reply.Spec {
	return reply.Text("🔢 Por favor, ingresa tu número de póliza:", false)
}

func promptName() reply.Spec {
	return reply.Text("👤 Para ayudarte a encontrar tu póliza, necesito algunos datos.\n\n"+
		"Por favor, ingresa tu *nombre completo* (como aparece en tu identificación):", false)
}

func repromptName() reply.Spec {
	return reply.Text(fmt.Sprintf("❌ Por favor ingresa tu nombre completo (mínimo %d caracteres):", validate.MinNameLength), false)
}

func promptNationalID() reply.Spec {
	return reply.Text("📋 Perfecto. Ahora necesito tu *CURP* (Clave Única de Registro de Población):\n\n"+
		"Ejemplo: ABCD123456HDFGHI01", false)
}

func repromptNationalID() reply.Spec {
	return reply.Text("❌ CURP no válido. Debe tener 18 caracteres.\n\n"+
		"Ejemplo: ABCD123456HDFGHI01\n\nPor favor ingresa tu CURP nuevamente:", false)
}

func promptBirthDate() reply.Spec {
	return reply.Text("📅 Excelente. Ahora ingresa tu *fecha de nacimiento*:\n\n"+
		"Formato: DD/MM/AAAA\nEjemplo: 15/08/1985", false)
}

func repromptBirthDate() reply.Spec {
	return reply.Text("❌ Formato de fecha incorrecto.\n\nUsa el formato: DD/MM/AAAA\nEjemplo: 15/08/1985\n\n"+
		"Por favor ingresa tu fecha de nacimiento:", false)
}

var categoryEmoji = map[string]string{"1": "1️⃣", "2": "2️⃣", "3": "3️⃣", "4": "4️⃣", "5": "5️⃣"}

func categoryList() string {
	lines := make([]string, 0, 5)
	for _, c := range validate.Categories() {
		mark, ok := categoryEmoji[c.Code]
		if !ok {
			mark = c.Code + "."
		}
		lines = append(lines, mark+" "+c.Label)
	}
	return strings.Join(lines, "\n")
}

func promptInsuranceType() reply.Spec {
	return reply.Text("🛡️ Por último, ¿qué tipo de seguro tienes con nosotros?\n\n"+
		"Selecciona escribiendo el número:\n\n"+categoryList(), false)
}

func repromptInsuranceType() reply.Spec {
	return reply.Text("❌ Opción no válida. Selecciona el número correspondiente:\n\n"+categoryList(), false)
}

func summary(in Intake) reply.Spec {
	return reply.Text(fmt.Sprintf("✅ *Datos recibidos correctamente:*\n\n"+
		"👤 Nombre: %s\n📋 CURP: %s\n📅 Fecha de nacimiento: %s\n🛡️ Tipo de seguro: %s\n\n"+
		"🔍 *Procesando búsqueda de póliza...*\n\n"+
		"⏳ En breve un asesor verificará tus datos y te proporcionará la información de tu póliza.\n\n"+
		"📞 También puedes contactar directamente a un asesor escribiendo *6* en el menú principal.",
		in.FullName, in.NationalID, in.BirthDate, in.InsuranceType), false)
}
