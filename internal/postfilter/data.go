// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package postfilter

func set(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// sectionHeadings are upper-case document headings matched as a whole.
var sectionHeadings = set(
	"CLINICAL INFORMATION", "COMPARISON", "CONTRAST", "TECHNIQUE", "FINDINGS", "IMPRESSION",
	"HISTORY", "EXAMINATION", "ASSESSMENT", "PLAN", "MEDICATIONS", "ALLERGIES", "DIAGNOSIS",
	"PROCEDURE", "RESULTS", "CONCLUSION", "RECOMMENDATIONS", "SUMMARY", "CHIEF COMPLAINT",
	"PRESENT ILLNESS", "PAST MEDICAL HISTORY", "FAMILY HISTORY", "SOCIAL HISTORY",
	"REVIEW OF SYSTEMS", "PHYSICAL EXAMINATION", "LABORATORY DATA", "IMAGING STUDIES",
	"PATIENT INFORMATION", "VISIT INFORMATION", "PROVIDER INFORMATION", "DISCHARGE SUMMARY",
	"OPERATIVE REPORT", "PROGRESS NOTE", "CONSULTATION REPORT", "RADIOLOGY REPORT",
	"PATHOLOGY REPORT", "EMERGENCY CONTACT", "EMERGENCY CONTACTS", "BILLING INFORMATION",
	"INSURANCE INFORMATION", "REDACTION GUIDE", "COMPREHENSIVE HIPAA PHI", "HIPAA PHI",
	"GEOGRAPHIC DATA", "TELEPHONE NUMBERS", "EMAIL ADDRESSES", "SOCIAL SECURITY NUMBER",
	"MEDICAL RECORD NUMBER", "HEALTH PLAN BENEFICIARY NUMBER", "HEALTH PLAN BENEFICIARY",
	"ACCOUNT NUMBERS", "CERTIFICATE LICENSE NUMBERS", "CERTIFICATE LICENSE", "VEHICLE IDENTIFIERS",
	"DEVICE IDENTIFIERS", "SERIAL NUMBERS", "WEB URLS", "IP ADDRESSES", "BIOMETRIC IDENTIFIERS",
	"FULL FACE PHOTOGRAPHS", "PHOTOGRAPHIC IMAGES", "VISUAL MEDIA", "USAGE GUIDE", "SUMMARY TABLE",
	"UNIQUE IDENTIFYING NUMBERS", "OTHER UNIQUE IDENTIFIERS", "ALL DATES", "ALL NAMES",
	"TREATMENT PLAN", "DIAGNOSTIC TESTS", "VITAL SIGNS", "LAB RESULTS", "TEST RESULTS",
	"CURRENT ADDRESS", "LOCATION INFORMATION", "CONTACT INFORMATION", "RELATIONSHIP INFORMATION",
	"DATES INFORMATION", "TIME INFORMATION", "DIGITAL IDENTIFIERS", "ONLINE IDENTIFIERS",
	"TRANSPORTATION INFORMATION", "IMPLANT INFORMATION", "DEVICE INFORMATION",
	"PROFESSIONAL LICENSES", "BIOMETRIC CHARACTERISTICS", "IDENTIFYING CHARACTERISTICS",
	"PATIENT ACKNOWLEDGMENTS", "PATIENT IDENTIFICATION SECTION", "PATIENT IDENTIFICATION",
	"FORMAT EXAMPLE", "CLINICAL NARRATIVE", "ADMINISTRATIVE RECORDS", "CLINICAL NOTES",
	"CLINICAL DOCUMENTATION", "DOCUMENTATION RECORDS", "IDENTIFICATION RECORDS", "IMPLANT RECORDS",
	"DEVICE DOCUMENTATION", "ONLINE PRESENCE", "COMMUNICATION RECORDS", "SYSTEM ACCESS",
	"SERVER LOGS", "SECURITY AUDITS", "BIOMETRIC AUTHENTICATION", "VISUAL DOCUMENTATION",
	"CLINICAL MEDIA", "ADMINISTRATIVE MEDIA",
)

var singleWordHeadings = set(
	"IMPRESSION", "FINDINGS", "TECHNIQUE", "COMPARISON", "CONTRAST", "HISTORY", "EXAMINATION",
	"ASSESSMENT", "PLAN", "MEDICATIONS", "ALLERGIES", "DIAGNOSIS", "PROCEDURE", "RESULTS",
	"CONCLUSION", "RECOMMENDATIONS", "SUMMARY", "DEMOGRAPHICS", "SPECIMEN", "NAMES", "DATES",
	"IDENTIFIERS", "CHARACTERISTICS", "DEFINITION", "EXAMPLES", "GUIDE", "TABLE", "SECTION",
	"CATEGORY", "USAGE", "REDACTION", "COMPLIANCE", "HIPAA", "GEOGRAPHIC", "TELEPHONE", "BIOMETRIC",
	"PHOTOGRAPHIC", "ADMINISTRATIVE", "DOCUMENTATION", "CREDENTIALS", "TRANSPORTATION",
)

// structureWords mark form and document structure; a name containing one
// is a label, not a person.
var structureWords = set(
	"RECORD", "INFORMATION", "SECTION", "NOTES", "HISTORY", "DEPARTMENT", "NUMBER", "ACCOUNT",
	"ROUTING", "BANK", "POLICY", "GROUP", "MEMBER", "STATUS", "DATE", "FORMAT", "PHONE", "ADDRESS",
	"EMAIL", "CONTACT", "PORTAL", "EXAMINATION", "RESULTS", "SIGNS", "RATE", "PRESSURE", "VEHICLE",
	"LICENSE", "DEVICE", "SERIAL", "MODEL", "IDENTIFIERS", "CHARACTERISTICS", "GUIDE", "TABLE",
	"CATEGORY", "DEFINITION", "EXAMPLE", "EXAMPLES", "DOCUMENTATION", "RECORDS", "FILES", "DATA",
	"MEDIA", "IMAGES", "VIDEOS", "PHOTOGRAPHS", "AUTHENTICATION", "CREDENTIALS", "BIOMETRIC",
	"GEOGRAPHIC", "TRANSPORTATION", "REDACTION", "COMPLIANCE", "HARBOR", "BENEFICIARY",
	"CERTIFICATE",
)

// invalidStarts are matched case-sensitively against the start of the name.
var invalidStarts = []string{
	"The ", "A ", "An ", "To ", "From ", "In ", "On ", "At ", "Is ", "Was ", "Are ", "By ", "For ",
	"With ", "As ", "All ", "No ", "Not ", "And ", "Or ", "But ", "Home ", "Work ", "Cell ", "Fax ",
	"Email ", "Blood ", "Heart ", "Vital ", "Oxygen ", "Cardiac ", "Distinct ", "Athletic ",
	"Local ", "Regional ", "National ", "Nursing ", "Diagnostic ", "Unstable ", "Acute ",
	"Chronic ", "Chief ", "Present ", "Privacy ", "Advance ", "Consent ", "Financial ", "Current ",
	"Complete ", "Comprehensive ", "Continue ", "Add ", "Increase ", "Past ", "Family ", "Social ",
	"Review ", "Treatment ", "Provider ", "Contact ", "Relationship ", "Digital ", "Online ",
	"Vehicle ", "Transportation ", "Device ", "Implant ", "Professional ", "Biometric ",
	"Identifying ", "Visual ", "Reports ", "Symptom ", "Died ", "History ", "Diagnosed ", "NPO ",
	"Education ", "Paternal ", "Maternal ", "Consulting ", "Admitting ", "Sister ", "Brother ",
	"Allergic ", "Seasonal ", "General ", "Zip ", "Lives ", "Next ", "Medtronic ", "Zimmer ",
}

// invalidEndings are matched against the lower-cased name.
var invalidEndings = []string{
	" the", " at", " in", " on", " to", " from", " reviewed", " case", " was", " is", " are",
	" patient", " doctor", " nurse", " staff", " phone", " address", " email", " number",
	" contact", " portal", " history", " status", " results", " plan", " notes", " unit", " rate",
	" pressure", " signs", " level", " build", " network", " angina", " support", " education",
	" planning", " studies", " management", " drip", " vehicle", " model", " location",
	" situation", " use", " boulder", " boston", " denver", " colorado", " name", " illness",
	" complaint", " appearance", " notice", " rights", " responsibilities", " treatment",
	" directive", " rhinitis", " medications", " count", " panel", " mellitus", " lisinopril",
	" aspirin", " atorvastatin", " metoprolol", " metformin", " information", " identifiers",
	" characteristics", "-up", " hipaa",
}

var medicalPhrases = set(
	"the patient", "the doctor", "emergency department", "intensive care", "medical history",
	"physical examination", "diabetes mellitus", "depressive disorder", "bipolar disorder",
	"transgender male", "domestic partner", "is taking", "software engineer", "in any format",
	"blood pressure", "heart rate", "respiratory rate", "oxygen saturation", "vital signs",
	"lab results", "test results", "unstable angina", "acute coronary", "oxygen support",
	"discharge planning", "nursing education", "natriuretic peptide", "complete blood",
	"metabolic panel", "imaging studies", "lab work", "acute management", "telemetry unit",
	"nitroglycerin drip", "cranial nerves", "home phone", "cell phone", "work phone", "fax number",
	"home address", "work address", "email address", "patient portal", "insurance portal",
	"home network", "patient vehicle", "spouse vehicle", "vehicle license", "pacemaker model",
	"pacemaker serial", "physical therapy", "professional license", "retinal pattern",
	"patient photo", "security camera", "building access", "parking lot", "waiting room",
	"surgical video", "ultrasound video", "telehealth session", "living situation",
	"tobacco history", "alcohol use", "drug history", "stress level", "senior partner",
	"distinct boston", "athletic build", "north boulder", "downtown boulder", "with all hipaa",
	"patient full name", "zip code", "lives near", "next scheduled follow", "chief complaint",
	"present illness", "general appearance", "privacy notice", "patient rights",
	"advance directive", "consent for treatment", "financial responsibility", "allergic rhinitis",
	"current medications", "complete blood count", "comprehensive metabolic panel",
	"comprehensive metabolic", "blood count", "partial thromboplastin", "prothrombin time",
	"hemoglobin a1c", "continue lisinopril", "add beta", "increase aspirin", "add atorvastatin",
	"add metoprolol", "increase metformin", "continue metformin", "medtronic viva",
	"medtronic icd", "zimmer prosthesis", "past medical history", "family history",
	"social history", "review of systems", "assessment", "clinical impressions",
	"diagnostic tests", "treatment plan", "provider information", "patient acknowledgments",
	"contact information", "relationship information", "dates information", "time information",
	"digital identifiers", "online identifiers", "vehicle information",
	"transportation information", "device information", "implant information",
	"professional licenses", "credentials", "biometric characteristics",
	"identifying characteristics", "photographs", "visual media", "current address",
	"location information", "reports symptom", "symptom onset", "died of", "history of",
	"diagnosed june", "diagnosed january", "diagnosed february", "diagnosed march",
	"diagnosed april", "diagnosed may", "diagnosed july", "diagnosed august",
	"diagnosed september", "diagnosed october", "diagnosed november", "diagnosed december",
	"npo pending", "education materials", "sister linda", "paternal grandmother",
	"paternal grandfather", "maternal grandmother", "maternal grandfather",
	"consulting cardiologist", "admitting physician",
)

// medicalSuffixes are matched case-sensitively against the end of the name.
var medicalSuffixes = []string{
	"Disorder", "Mellitus", "Disease", "Syndrome", "Infection", "Condition", "Health", "Hospital",
	"Clinic", "Center", "Partners", "Group", "Medical", "Medicine", "System", "Systems", "Pressure",
	"Rate", "Signs", "Phone", "Address", "Email", "Portal", "History", "Examination", "Studies",
	"Management", "Planning",
}

var geoTerms = set(
	"boulder", "boston", "denver", "colorado", "texas", "california", "regional", "downtown",
	"north", "south", "east", "west", "central", "metro", "urban", "rural",
)

var fieldLabels = set(
	"spouse name", "sister name", "brother name", "mother name", "father name", "employer name",
	"employer contact", "spouse phone", "spouse email", "sister contact", "referring physician",
	"personal website", "admitting physician", "nurse manager", "last visit", "next scheduled",
	"health journal", "patient education", "document created", "last updated",
	"signature location",
)

// lineLabels start a field on the line after a name.
var lineLabels = []string{
	"dx", "dob", "mrn", "age", "phone", "fax", "email", "address", "street", "zip", "zipcode",
	"npi", "dea", "ssn", "patient", "provider",
}
