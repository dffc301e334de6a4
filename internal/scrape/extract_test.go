package scrape

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const detailPageHTML = `
<html><body>
<h2>تفاصيل المنافسة</h2>
<div class="row">
	<div class="etd-item"><span class="etd-item-title">اسم المنافسة</span><span>توريد وتركيب أجهزة حاسب آلي</span></div>
	<div class="etd-item"><span class="etd-item-title">الرقم المرجعي</span><span>250639010039</span></div>
	<div class="etd-item"><span class="etd-item-title">قيمة وثائق المنافسة</span><span>1,500 ريال</span></div>
	<div class="etd-item"><span class="etd-item-title">نوع المنافسة</span><span>منافسة عامة</span></div>
	<div class="etd-item"><p>مدة العقد 12 شهر</p></div>
	<div class="etd-item"><span class="etd-item-title">الجهة الحكوميه</span><span>وزارة الصحة</span></div>
	<div class="etd-item"><span class="etd-item-title">حالة المنافسة</span><span>معلنة</span></div>
	<div class="etd-item"><span class="etd-item-title">آخر موعد لتقديم العروض</span><span>15/03/2026 14:30</span></div>
</div>
</body></html>`

func TestParseDetailPageMapsLabeledFields(t *testing.T) {
	f, err := ParseDetailPage(detailPageHTML)
	require.NoError(t, err)

	require.Equal(t, "توريد وتركيب أجهزة حاسب آلي", f.Name)
	require.Equal(t, "250639010039", f.ReferenceNumber)
	require.Equal(t, 1500.0, f.BrochureCost)
	require.Equal(t, "منافسة عامة", f.CompetitionType)
	require.Equal(t, "وزارة الصحة", f.GovernmentEntity)
	require.Equal(t, "معلنة", f.EtimadStatus)
	require.Equal(t, "15/03/2026 14:30", f.DeadlineRaw)
}

func TestParseDetailPageParentFallback(t *testing.T) {
	// The contract duration sits in a bare paragraph: no value sibling, so
	// the container's text minus the label is the value.
	f, err := ParseDetailPage(detailPageHTML)
	require.NoError(t, err)
	require.Equal(t, "12 شهر", f.ContractDuration)
}

func TestParseDetailPageMissingLabelsYieldEmpty(t *testing.T) {
	f, err := ParseDetailPage(`<html><body><h2>صفحة فارغة</h2></body></html>`)
	require.NoError(t, err)

	require.Equal(t, "", f.ReferenceNumber)
	require.Equal(t, "", f.GovernmentEntity)
	require.Equal(t, "", f.DeadlineRaw)
	require.Equal(t, 0.0, f.BrochureCost)
}

func TestParseDetailPageNameFallsBackToHeading(t *testing.T) {
	html := `<html><body>
		<h2>مشروع صيانة الطرق</h2>
		<div><span class="etd-item-title">الرقم المرجعي</span><span>240112000001</span></div>
	</body></html>`

	f, err := ParseDetailPage(html)
	require.NoError(t, err)
	require.Equal(t, "مشروع صيانة الطرق", f.Name)
}

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"1,500 ريال", 1500},
		{"200", 200},
		{"SAR 3,250.75", 3250.75},
		{"مجاناً", 0},
		{"", 0},
		{"...", 0},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ParseMoney(tc.in), "input %q", tc.in)
	}
}

func TestCanonicalizeDeadline(t *testing.T) {
	require.Equal(t, "2026-03-15 14:30", CanonicalizeDeadline("15/03/2026 14:30"))
	require.Equal(t, "2026-03-15 14:30", CanonicalizeDeadline("الموعد النهائي: 15/03/2026 14:30 م"))
	require.Equal(t, "", CanonicalizeDeadline("45/13/2026 99:99"))
	require.Equal(t, "", CanonicalizeDeadline("2026-03-15"))
	require.Equal(t, "", CanonicalizeDeadline(""))
}

func TestParseAwardPanelWithSupplierTable(t *testing.T) {
	html := `<html><body><div id="awarding">
		<h4>قائمة الموردين المرسى عليهم</h4>
		<table><tbody>
			<tr><td>شركة التقنية المتقدمة</td><td>98</td><td>1,234,567.89 ريال</td></tr>
			<tr><td>شركة أخرى</td><td>95</td><td>999 ريال</td></tr>
		</tbody></table>
	</div></body></html>`

	res, err := ParseAwardPanel(html)
	require.NoError(t, err)
	require.Equal(t, "شركة التقنية المتقدمة", res.Supplier)
	require.NotNil(t, res.Amount)
	require.Equal(t, 1234567.89, *res.Amount)
}

func TestParseAwardPanelHeaderWithoutRows(t *testing.T) {
	html := `<html><body>
		<h4>قائمة الموردين المرسى عليهم</h4>
		<table><tbody></tbody></table>
	</body></html>`

	res, err := ParseAwardPanel(html)
	require.NoError(t, err)
	require.Equal(t, AwardNotAnnounced, res.Supplier)
	require.Nil(t, res.Amount)
}

func TestParseAwardPanelNotAnnouncedPhrase(t *testing.T) {
	html := `<html><body><p>لم يتم اعلان نتائج الترسية بعد</p></body></html>`

	res, err := ParseAwardPanel(html)
	require.NoError(t, err)
	require.Equal(t, AwardNotAnnounced, res.Supplier)
}

func TestParseAwardPanelNothingRecognizable(t *testing.T) {
	res, err := ParseAwardPanel(`<html><body><p>محتوى آخر</p></body></html>`)
	require.NoError(t, err)
	require.Equal(t, AwardUnavailable, res.Supplier)
}

func TestAwardSentinelsAreDistinct(t *testing.T) {
	require.NotEqual(t, AwardNotAnnounced, AwardUnavailable)
	require.NotEqual(t, AwardNotAnnounced, AwardFetchError)
	require.NotEqual(t, AwardUnavailable, AwardFetchError)
}

const listingPageHTML = `
<html><body>
<div class="tender-card">
	<a href="/Tender/DetailsForVisitor?TenderID=aaa111">عرض التفاصيل</a>
	<p>الرقم المرجعي : 250639010039</p>
	<p>آخر موعد لتقديم العروض 2026-03-15 14:30</p>
</div>
<div class="tender-card">
	<a href="/Tender/DetailsForVisitor?TenderID=bbb222">عرض التفاصيل</a>
	<p>الرقم المرجعي : 240112000001</p>
</div>
<div class="tender-card">
	<p>الرقم المرجعي : 999999999999</p>
</div>
<div class="tender-card">
	<a href="/Tender/DetailsForVisitor?TenderID=ccc333">عرض التفاصيل</a>
	<p>بطاقة بدون رقم مرجعي</p>
</div>
</body></html>`

func TestParseListingEntries(t *testing.T) {
	entries := ParseListingEntries(listingPageHTML, "https://tenders.etimad.sa/Tender/AllTendersForVisitor")

	// Cards without a details link or a reference number are dropped.
	require.Len(t, entries, 2)

	require.Equal(t, "https://tenders.etimad.sa/Tender/DetailsForVisitor?TenderID=aaa111", entries[0].URL)
	require.Equal(t, "250639010039", entries[0].ReferenceNumber)
	require.Equal(t, "2026-03-15 14:30", entries[0].DeadlineHint)

	require.Equal(t, "240112000001", entries[1].ReferenceNumber)
	require.Equal(t, "", entries[1].DeadlineHint)
}

func TestHasAwardTab(t *testing.T) {
	require.True(t, HasAwardTab(`<html><body><button id="awardingStepTab">الترسية</button></body></html>`))
	require.False(t, HasAwardTab(`<html><body><h2>تفاصيل المنافسة</h2></body></html>`))
}

func TestParseListingEntriesTrimsTrailingSeparator(t *testing.T) {
	html := `<div class="tender-card">
		<a href="/Tender/DetailsForVisitor?TenderID=x1">عرض التفاصيل</a>
		<p>الرقم المرجعي : 240112000001- منافسة عامة</p>
	</div>`

	entries := ParseListingEntries(html, "https://tenders.etimad.sa")
	require.Len(t, entries, 1)
	require.Equal(t, "240112000001", entries[0].ReferenceNumber)
}

func TestParseListingEntriesEmptyPage(t *testing.T) {
	entries := ParseListingEntries(`<html><body></body></html>`, "https://tenders.etimad.sa")
	require.Empty(t, entries)
}

func TestListingDeadlineHint(t *testing.T) {
	require.Equal(t, "2026-03-15 14:30", ListingDeadlineHint("آخر موعد لتقديم العروض 2026-03-15 14:30"))
	require.Equal(t, "", ListingDeadlineHint("آخر موعد لتقديم العروض 15/03/2026"))
	require.Equal(t, "", ListingDeadlineHint("لا يوجد"))
}
