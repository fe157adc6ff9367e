package dialogue

import (
	"errors"
	"fmt"
	"strings"

	"github.com/m3rciful/hmbot/core/reply"
)

// Office is a branch that can be looked up by a trigger phrase.
type Office struct {
	// Trigger is matched as a case-insensitive substring of the inbound text.
	Trigger   string
	Name      string
	Address   string
	Latitude  float64
	Longitude float64
}

// Advisor is a human contact listed under menu option 6.
type Advisor struct {
	Name  string
	Phone string
}

// Schedule holds office hours as display strings.
type Schedule struct {
	MondayToThursday string
	Friday           string
	Online           string
}

// Catalog is the canned content the engine answers with.
type Catalog struct {
	CompanyName string
	Website     string
	City        string
	Schedule    Schedule
	Offices     []Office
	Advisors    []Advisor

	DocumentURL     string
	DocumentCaption string
	AudioURL        string
	VideoURL        string
}

// DefaultCatalog returns the HM Insurance Brokers content.
func DefaultCatalog() Catalog {
	return Catalog{
		CompanyName: "HM Insurance Brokers",
		Website:     "www.hmbrokers.mx",
		City:        "Saltillo, Coahuila",
		Schedule: Schedule{
			MondayToThursday: "8:30 a.m. a 2:00 p.m. y 3:30 p.m. a 6:00 p.m.",
			Friday:           "8:30 a.m. a 2:00 p.m. y 3:30 p.m. a 5:00 p.m.",
			Online:           "24/7",
		},
		Offices: []Office{
			{
				Trigger:   "oficina musa",
				Name:      "HM Insurance Brokers - Oficina Musa",
				Address:   "Saltillo, Coahuila",
				Latitude:  25.4680278,
				Longitude: -100.9627102,
			},
			{
				Trigger:   "oficina plaza las vigas",
				Name:      "HM Insurance Brokers - Plaza Las Vigas",
				Address:   "Saltillo, Coahuila",
				Latitude:  25.4584206,
				Longitude: -100.9839111,
			},
		},
		Advisors: []Advisor{
			{Name: "Karen Ottosen", Phone: "528121234567"},
			{Name: "Selene Salazar", Phone: "528127654321"},
			{Name: "Rocio de Hoyos", Phone: "528129876543"},
			{Name: "Andres Castillo", Phone: "528123456789"},
		},
		DocumentURL:     "https://example.com/documento_informativo.pdf",
		DocumentCaption: "📎 Información sobre nuestros servicios",
		AudioURL:        "https://example.com/audio_bienvenida.mp3",
		VideoURL:        "https://youtu.be/tu_video_id",
	}
}

// Validate reports content the engine cannot answer with.
func (c Catalog) Validate() error {
	var errs []error
	if strings.TrimSpace(c.CompanyName) == "" {
		errs = append(errs, errors.New("company name is required"))
	}
	if len(c.Offices) == 0 {
		errs = append(errs, errors.New("at least one office is required"))
	}
	for i, o := range c.Offices {
		if strings.TrimSpace(o.Trigger) == "" {
			errs = append(errs, fmt.Errorf("office %d: trigger is required", i))
		}
		if err := reply.Location(o.Latitude, o.Longitude, o.Name, o.Address).Validate(); err != nil {
			errs = append(errs, fmt.Errorf("office %d: %w", i, err))
		}
	}
	if strings.TrimSpace(c.DocumentURL) == "" {
		errs = append(errs, errors.New("document url is required"))
	}
	if strings.TrimSpace(c.AudioURL) == "" {
		errs = append(errs, errors.New("audio url is required"))
	}
	return errors.Join(errs...)
}

const menuOptions = "1️⃣ Consultar mi póliza\n" +
	"2️⃣ Ver ubicación de oficinas\n" +
	"3️⃣ Descargar documento informativo\n" +
	"4️⃣ Escuchar mensaje de bienvenida\n" +
	"5️⃣ Video explicativo\n" +
	"6️⃣ Hablar con un asesor\n" +
	"7️⃣ Horarios de atención"

func (c Catalog) welcome() reply.Spec {
	return reply.Text(fmt.Sprintf("🔒💙 ¡Hola! Bienvenido al bot *%s*.\n\n"+
		"Estamos para ayudarte con todo lo relacionado a tus seguros.\n\n"+
		"Visita nuestra página web: %s\n\n"+
		"Selecciona una opción para continuar:\n\n%s", c.CompanyName, c.Website, menuOptions), false)
}

func (c Catalog) menu() reply.Spec {
	return reply.Text("Selecciona una opción para continuar:\n"+menuOptions, false)
}

func (c Catalog) fallback() reply.Spec {
	return reply.Text("🤖 No entendí tu mensaje. Por favor responde con un número del 1 al 7 para recibir información:\n\n"+
		"1️⃣ Consultar mi póliza\n2️⃣ Ver ubicación\n3️⃣ Descargar documento\n4️⃣ Escuchar audio\n"+
		"5️⃣ Video explicativo\n6️⃣ Hablar con asesor\n7️⃣ Horarios de atención", false)
}

func (c Catalog) officePrompt() reply.Spec {
	triggers := make([]string, 0, len(c.Offices))
	for _, o := range c.Offices {
		triggers = append(triggers, "*"+o.Trigger+"*")
	}
	return reply.Text("📍 ¿Qué oficina deseas ubicar?\n\n✳️ Escribe: "+strings.Join(triggers, " o "), false)
}

func (c Catalog) office(i int) reply.Spec {
	o := c.Offices[i]
	return reply.Location(o.Latitude, o.Longitude, o.Name, o.Address)
}

func (c Catalog) document() reply.Spec {
	return reply.Document(c.DocumentURL, c.DocumentCaption)
}

func (c Catalog) audio() reply.Spec {
	return reply.Audio(c.AudioURL)
}

func (c Catalog) video() reply.Spec {
	return reply.Text("🎥 Mira nuestro video explicativo: "+c.VideoURL, true)
}

func (c Catalog) advisors() reply.Spec {
	var b strings.Builder
	b.WriteString("👥 *Nuestros asesores disponibles:*\n\n")
	for i, a := range c.Advisors {
		fmt.Fprintf(&b, "%d️⃣ *%s*\n📱 %s\n\n", i+1, a.Name, a.Phone)
	}
	b.WriteString("💬 Puedes contactar directamente a cualquiera de nuestros asesores haciendo clic en su número de teléfono.")
	return reply.Text(b.String(), false)
}

func (c Catalog) hours() reply.Spec {
	return reply.Text(fmt.Sprintf("🕒 Nuestro horario de atención es:\n\n"+
		"Lunes a Jueves: %s\nViernes: %s\n\n"+
		"🌐 Atención en línea %s\n📍 Estamos ubicados en %s.",
		c.Schedule.MondayToThursday, c.Schedule.Friday, c.Schedule.Online, c.City), false)
}

func (c Catalog) thanks() reply.Spec {
	return reply.Text(fmt.Sprintf("😊 ¡Gracias a ti por contactarnos en *%s*! Estamos para servirte.", c.CompanyName), false)
}

func (c Catalog) farewell() reply.Spec {
	return reply.Text(fmt.Sprintf("👋 ¡Hasta luego! Gracias por confiar en *%s*.", c.CompanyName), false)
}
