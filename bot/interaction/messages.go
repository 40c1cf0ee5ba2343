package interaction

const (
	msgWelcome = "Welcome! Send me images, and I'll store them in a file directory and convert them into a PDF.\n\n" +
		"Available commands:\n" +
		"/convert - Create PDF from your images\n" +
		"/clear - Reset your images\n" +
		"/usage - View your usage statistics\n\n" +
		"Just send me images to get started!"

	msgImageReceived    = "Image received! You have %d images. Send more or use /convert to create a PDF."
	msgNoImagesYet      = "No images received yet. Please send some images first."
	msgNoImagesFound    = "No images found. Please send images first."
	msgMenu             = "What would you like to do?"
	msgPickImage        = "Select an image to convert to PDF:"
	msgCleared          = "All images, PDFs and your usage stats have been cleared."
	msgAlreadyCleared   = "All images already cleared."
	msgUsage            = "📊 Your Usage Stats:\n\nPDFs Created: %d\nImages Processed: %d\n\nThank you for using the bot!"
	msgNoUsage          = "No usage data found. Please use the bot first."
	msgStorageFailure   = "Something went wrong with your data. Please try again."
	msgChoiceExpired    = "This menu has expired. Use /convert to choose again."
	msgTooManyToPick    = "You have %d images, too many to pick from (at most %d). Use /convert and pick all images, or /clear."
	msgEncodingFailure  = "Could not create the PDF. Please check your images and try again."
	msgDownloadFailure  = "Could not download the image. Please send it again."
	msgAdminStatsHeader = "📊 Bot Statistics:\n\nTotal Users: %d\nTotal PDFs Generated: %d\nTotal Images Processed: %d\n\nTop Users:\n"
	msgAdminStatsLine   = "%d. User %s: %d PDFs, %d images\n"

	labelSpecific = "Convert Specific Image"
	labelAll      = "Convert All Images to One PDF"
	labelClear    = "Clear All Images"
	labelImage    = "Image %d"
)

const (
	// TopUsersLimit is how many users the admin report ranks.
	TopUsersLimit = 5
	// MaxImageButtons is the most buttons Telegram accepts in one inline keyboard.
	MaxImageButtons = 100
)
