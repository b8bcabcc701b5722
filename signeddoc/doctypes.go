package signeddoc

// Registered document type identifiers.
// https://input-output-hk.github.io/catalyst-libs/architecture/08_concepts/signed_doc/types/
var (
	DocTypeProposal                 = MustUUIDv4("7808d2ba-d511-40af-84e8-c0d1625fdfdc")
	DocTypeProposalFormTemplate     = MustUUIDv4("0ce8ab38-9258-4fbc-a62e-7faa6e58318f")
	DocTypeProposalComment          = MustUUIDv4("b679ded3-0e7c-41ba-89f8-da62a17898ea")
	DocTypeCommentFormTemplate      = MustUUIDv4("0b8424d4-ebfd-46e3-9577-1775a69d290c")
	DocTypeBrandParameters          = MustUUIDv4("3e4808cc-c86e-467b-9702-d60baa9d1fca")
	DocTypeCampaignParameters       = MustUUIDv4("0110ea96-a555-47ce-8408-36efe6ed6f7c")
	DocTypeCategoryParameters       = MustUUIDv4("48c20109-362a-4d32-9bba-e0a9cf8b45be")
	DocTypeProposalSubmissionAction = MustUUIDv4("5e60e623-ad02-4a1b-a1ac-406db978ee48")
)
