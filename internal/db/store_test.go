package db

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/fahad/etimad-monitor/internal/models"
)

func TestCleanTenderStripsMarkup(t *testing.T) {
	s := NewStore(nil, zerolog.Nop())

	supplier := `<b>شركة التقنية</b> المتقدمة`
	in := models.Tender{
		Name:             `توريد <script>alert(1)</script>أجهزة`,
		GovernmentEntity: "  وزارة الصحة  ",
		AwardedSupplier:  &supplier,
	}

	out := s.cleanTender(in)
	require.Equal(t, "توريد أجهزة", out.Name)
	require.Equal(t, "وزارة الصحة", out.GovernmentEntity)
	require.Equal(t, "شركة التقنية المتقدمة", *out.AwardedSupplier)
}

func TestCleanTenderKeepsSentinelsVerbatim(t *testing.T) {
	s := NewStore(nil, zerolog.Nop())

	sentinel := "لم يتم اعلان نتائج الترسية بعد"
	out := s.cleanTender(models.Tender{AwardedSupplier: &sentinel})
	require.Equal(t, sentinel, *out.AwardedSupplier)
}

func TestNilIfEmpty(t *testing.T) {
	require.Nil(t, nilIfEmpty(""))
	require.Equal(t, "x", nilIfEmpty("x"))
}
