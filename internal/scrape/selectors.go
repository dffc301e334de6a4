package scrape

// Everything that couples this module to the Etimad portal's markup lives
// in this file. When the portal changes its layout, this is the only
// place that needs to follow.

const (
	// Listing search panel.
	selSearchCollapse = `#searchBtnColaps`
	selDatesTab       = `a[href="#dates"]`
	selPublishDate    = `#PublishDateId`
	selReferenceInput = `#txtReferenceNumber`
	selSearchSubmit   = `#searchBtn`

	// "فى أى وقت" (any time) option of the publish-date filter.
	anyTimeOptionValue = "1"

	// Listing results.
	selTenderCard  = `div.tender-card`
	selDetailsLink = `a[href*="DetailsForVisitor"]`

	// Detail page marker: the heading that only renders on a real detail
	// view, never on an error or redirect page.
	detailMarkerXPath = `//h2[contains(., 'تفاصيل المنافسة')]`

	// Award results tab on the detail page.
	selAwardTab = `#awardingStepTab`
)

// nextPageJS locates the pagination "next" control and clicks it when
// enabled. Returns true when a click happened. The portal signals
// end-of-results either by omitting the control or by disabling it.
const nextPageJS = `(() => {
	const navList = document.querySelector('nav[aria-label="Page navigation"] ul.list-unstyled');
	if (!navList) return false;
	const items = navList.querySelectorAll('li');
	if (items.length === 0) return false;
	const btn = items[items.length - 1].querySelector('button[focusable="true"]');
	if (btn && !btn.disabled) {
		btn.click();
		return true;
	}
	return false;
})()`

// Bilingual field labels on the detail page, mapped to record fields.
const (
	labelName             = "اسم المنافسة"
	labelReferenceNumber  = "الرقم المرجعي"
	labelBrochureCost     = "قيمة وثائق المنافسة"
	labelCompetitionType  = "نوع المنافسة"
	labelContractDuration = "مدة العقد"
	labelGovernmentEntity = "الجهة الحكوميه"
	labelEtimadStatus     = "حالة المنافسة"
	labelSubmission       = "طريقة تقديم العروض"
	labelDeadline         = "آخر موعد لتقديم العروض"
	labelPurpose          = "الغرض من المنافسة"
	labelGuarantee        = "مطلوب ضمان الإبتدائي"
)

// Award-panel markers.
const (
	awardHeaderPhrase = "قائمة الموردين المرسى عليهم"
)

// Award sentinels. These round-trip verbatim through storage and must stay
// pairwise distinct; each encodes a different reason for a missing
// supplier.
const (
	// The panel rendered but the portal says results are not out yet.
	AwardNotAnnounced = "لم يتم اعلان نتائج الترسية بعد"
	// The detail page has no award tab at all.
	AwardUnavailable = "غير متاح"
	// The award step itself failed.
	AwardFetchError = "خطأ في جلب البيانات"
)
